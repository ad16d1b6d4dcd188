package settings

// Question describes a single prompt of `glpinv configure`.
type Question struct {
	Key    string
	Prompt string
	// Secret input is masked while typing.
	Secret bool
	// Required questions cannot be left empty unless a value is stored.
	Required bool
}

// Questions returns the prompts needed to fill a Settings, pre-filled
// answers aside.
func Questions() []Question {
	return []Question{
		{Key: KeyURL, Prompt: "GLPI API URL (https://host/apirest.php)", Required: true},
		{Key: KeyAppToken, Prompt: "GLPI application token", Secret: true, Required: true},
		{Key: KeyUserToken, Prompt: "GLPI user token", Secret: true, Required: true},
		{Key: KeyGroupsFile, Prompt: "Groups configuration file (optional)"},
	}
}

// FromAnswers builds Settings from answers keyed by Question.Key. Empty
// answers keep the value from current, which may be nil.
func FromAnswers(current *Settings, answers map[string]string) Settings {
	var s Settings
	if current != nil {
		s = *current
	}
	set := func(dst *string, key string) {
		if v := answers[key]; v != "" {
			*dst = v
		}
	}
	set(&s.URL, KeyURL)
	set(&s.AppToken, KeyAppToken)
	set(&s.UserToken, KeyUserToken)
	set(&s.GroupsFile, KeyGroupsFile)
	return s
}
