package tickets

// guestIDInput is the sentinel the kiosk sends for walk-in guests.
const guestIDInput = "0000000000010"

// Identity is the classification of a kiosk ID input.
type Identity struct {
	RequesterID *string // nil for guests
	Role        RequesterRole
	Section     Section
}

// ParseIDInput classifies a 13-character kiosk input. Students carry a
// 12-digit ID number followed by a section digit (1 = Main, 2 = South,
// anything else defaults to Main). The guest sentinel maps to an
// anonymous South-section guest. Everything else is rejected.
func ParseIDInput(input string) (Identity, bool) {
	if input == guestIDInput {
		return Identity{Role: RequesterGuest, Section: SectionSouth}, true
	}

	if len(input) != 13 || !isDigits(input) {
		return Identity{}, false
	}

	id := input[:12]
	section := SectionMain
	if input[12] == '2' {
		section = SectionSouth
	}

	return Identity{
		RequesterID: &id,
		Role:        RequesterStudent,
		Section:     section,
	}, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
