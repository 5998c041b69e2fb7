package plate

import "testing"

func TestCorrector_Repair(t *testing.T) {
	c := DefaultCorrector()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"district letters to digits", "TSOBFW3131", "TS08FW3131"},
		{"region digit to letter", "T509EA1234", "TS09EA1234"},
		{"both positions", "8R0lAB1234", "BR01AB1234"},
		{"D in district", "TSD9EA1234", "TS09EA1234"},
		{"separators skipped and kept", "TS 0I EA 1234", "TS 01 EA 1234"},
		{"hyphen separators", "T-5-O-9EA1234", "T-S-0-9EA1234"},
		{"series and number untouched", "TS09O81234", "TS09O81234"},
		{"clean plate unchanged", "TS09EA1234", "TS09EA1234"},
		{"too short", "T5O9EA", "T5O9EA"},
		{"too long", "T5O9EA123456789", "T5O9EA123456789"},
		{"shortest repaired", "T5O9EA1", "TS09EA1"},
		{"lowercase l only in district", "lSl9EA1234", "lS19EA1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Repair(tt.in); got != tt.want {
				t.Errorf("Repair(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrector_RepairPreservesLength(t *testing.T) {
	c := DefaultCorrector()
	for _, in := range []string{"TSOBFW3131", "TS 0I EA 1234", "8R-0l-AB-1234"} {
		if got := c.Repair(in); len(got) != len(in) {
			t.Errorf("Repair(%q) changed length: %q", in, got)
		}
	}
}
