package tickets

import "testing"

func TestParseIDInput(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		ok      bool
		role    RequesterRole
		section Section
		id      string
	}{
		{"guest sentinel", "0000000000010", true, RequesterGuest, SectionSouth, ""},
		{"student main", "1234567890121", true, RequesterStudent, SectionMain, "123456789012"},
		{"student south", "1234567890122", true, RequesterStudent, SectionSouth, "123456789012"},
		{"unknown section digit defaults to main", "1234567890129", true, RequesterStudent, SectionMain, "123456789012"},
		{"too short", "123456789012", false, "", "", ""},
		{"too long", "12345678901234", false, "", "", ""},
		{"non numeric", "12345678901a1", false, "", "", ""},
		{"empty", "", false, "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identity, ok := ParseIDInput(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if identity.Role != tc.role {
				t.Errorf("role = %s, want %s", identity.Role, tc.role)
			}
			if identity.Section != tc.section {
				t.Errorf("section = %s, want %s", identity.Section, tc.section)
			}
			if tc.id == "" {
				if identity.RequesterID != nil {
					t.Errorf("expected nil requester ID, got %q", *identity.RequesterID)
				}
			} else if identity.RequesterID == nil || *identity.RequesterID != tc.id {
				t.Errorf("requester ID = %v, want %q", identity.RequesterID, tc.id)
			}
		})
	}
}

func TestFormatDisplayNumber(t *testing.T) {
	cases := []struct {
		priority bool
		seq      int
		section  Section
		want     string
	}{
		{false, 1, SectionMain, "S-0001-MAIN"},
		{true, 7, SectionSouth, "P-0007-SOUTH"},
		{false, 12345, SectionMain, "S-12345-MAIN"},
	}
	for _, tc := range cases {
		if got := FormatDisplayNumber(tc.priority, tc.seq, tc.section); got != tc.want {
			t.Errorf("FormatDisplayNumber(%v, %d, %s) = %q, want %q", tc.priority, tc.seq, tc.section, got, tc.want)
		}
	}
}
