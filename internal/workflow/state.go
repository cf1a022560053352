package workflow

// Panel names one screen of the billing run. Runs move through panels in
// a fixed order; starting over is the only jump backwards.
type Panel string

const (
	// PanelSettingsRequired blocks runs until the landlord profile exists.
	PanelSettingsRequired Panel = "settings_required"
	PanelHome             Panel = "home"
	PanelLeaseSelect      Panel = "lease_select"
	PanelUpload           Panel = "upload"
	PanelReview           Panel = "review"
	PanelGenerate         Panel = "generate"
	PanelCharge           Panel = "charge"
	PanelDone             Panel = "done"
)

// validTransitions defines the legal panel transitions. Each key is a
// source panel, the value the set of panels it may advance to.
var validTransitions = map[Panel]map[Panel]bool{
	PanelSettingsRequired: {PanelHome: true},
	PanelHome:             {PanelLeaseSelect: true},
	PanelLeaseSelect:      {PanelUpload: true},
	PanelUpload:           {PanelReview: true},
	PanelReview:           {PanelGenerate: true},
	PanelGenerate:         {PanelCharge: true},
	PanelCharge:           {PanelDone: true},
}

// IsValidTransition checks if a panel transition is legal. Starting over
// to PanelHome is always legal and handled separately.
func IsValidTransition(from, to Panel) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}
