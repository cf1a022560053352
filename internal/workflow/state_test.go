package workflow

import "testing"

func TestIsValidTransition(t *testing.T) {
	valid := [][2]Panel{
		{PanelSettingsRequired, PanelHome},
		{PanelHome, PanelLeaseSelect},
		{PanelLeaseSelect, PanelUpload},
		{PanelUpload, PanelReview},
		{PanelReview, PanelGenerate},
		{PanelGenerate, PanelCharge},
		{PanelCharge, PanelDone},
	}
	for _, tc := range valid {
		if !IsValidTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be valid", tc[0], tc[1])
		}
	}

	invalid := [][2]Panel{
		{PanelHome, PanelReview},
		{PanelUpload, PanelCharge},
		{PanelReview, PanelUpload},
		{PanelDone, PanelCharge},
		{PanelCharge, PanelHome},
	}
	for _, tc := range invalid {
		if IsValidTransition(tc[0], tc[1]) {
			t.Errorf("%s -> %s should be invalid", tc[0], tc[1])
		}
	}
}
