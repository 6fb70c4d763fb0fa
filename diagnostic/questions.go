package diagnostic

// Weight is the points an option adds to each urgency bucket.
type Weight struct {
	Emergency int
	Critical  int
	High      int
}

type Option struct {
	Label  string `json:"label"`
	Weight Weight `json:"-"`
	Factor string `json:"-"`
}

type Question struct {
	ID      int      `json:"id"`
	Topic   string   `json:"topic"`
	Options []Option `json:"options"`
}

// questions is the fixed quiz. Option order matches the order the quiz renders.
var questions = []Question{
	{ID: 1, Topic: "argument_frequency", Options: []Option{
		{Label: "Every day", Weight: Weight{Emergency: 3}, Factor: "Daily arguments"},
		{Label: "Several times a week", Weight: Weight{Critical: 2}, Factor: "Frequent arguments"},
		{Label: "A few times a month", Weight: Weight{High: 1}, Factor: "Recurring arguments"},
		{Label: "Rarely"},
	}},
	{ID: 2, Topic: "argument_outcome", Options: []Option{
		{Label: "We make up quickly"},
		{Label: "Days of silence", Weight: Weight{Critical: 2}, Factor: "Long silent treatment after fights"},
		{Label: "Threats of separation", Weight: Weight{Emergency: 2}, Factor: "Separation threats during fights"},
		{Label: "Nothing gets resolved", Weight: Weight{High: 2}, Factor: "Conflicts never get resolved"},
	}},
	{ID: 3, Topic: "divorce_mentioned", Options: []Option{
		{Label: "Yes, seriously", Weight: Weight{Emergency: 2}, Factor: "Divorce discussed seriously"},
		{Label: "Only in anger", Weight: Weight{Critical: 2}, Factor: "Divorce mentioned in anger"},
		{Label: "Never"},
	}},
	{ID: 4, Topic: "trust", Options: []Option{
		{Label: "Broken", Weight: Weight{Emergency: 2}, Factor: "Broken trust"},
		{Label: "Shaken", Weight: Weight{Critical: 1, High: 1}, Factor: "Shaken trust"},
		{Label: "Solid"},
	}},
	{ID: 5, Topic: "intimacy", Options: []Option{
		{Label: "Gone for months", Weight: Weight{Critical: 2}, Factor: "No intimacy for months"},
		{Label: "Rare", Weight: Weight{High: 2}, Factor: "Rare intimacy"},
		{Label: "Normal"},
	}},
	{ID: 6, Topic: "communication", Options: []Option{
		{Label: "We can't talk without fighting", Weight: Weight{Critical: 2}, Factor: "Every conversation becomes a fight"},
		{Label: "Only about logistics", Weight: Weight{High: 2}, Factor: "Communication limited to logistics"},
		{Label: "Open and calm"},
	}},
	{ID: 7, Topic: "disrespect", Options: []Option{
		{Label: "Frequently", Weight: Weight{Emergency: 2}, Factor: "Frequent insults and disrespect"},
		{Label: "Sometimes", Weight: Weight{Critical: 2}, Factor: "Occasional disrespect"},
		{Label: "Never"},
	}},
	{ID: 8, Topic: "third_parties", Options: []Option{
		{Label: "Children witness the fights", Weight: Weight{Critical: 2}, Factor: "Children exposed to conflict"},
		{Label: "Family and friends are involved", Weight: Weight{High: 1}, Factor: "Relatives involved in the conflict"},
		{Label: "Nobody else knows"},
	}},
	{ID: 9, Topic: "separate_beds", Options: []Option{
		{Label: "Yes", Weight: Weight{Critical: 2}, Factor: "Sleeping apart"},
		{Label: "Sometimes", Weight: Weight{High: 1}, Factor: "Occasionally sleeping apart"},
		{Label: "No"},
	}},
	{ID: 10, Topic: "previous_help", Options: []Option{
		{Label: "Yes, nothing worked", Weight: Weight{Critical: 1}, Factor: "Previous help failed"},
		{Label: "Thought about it", Weight: Weight{High: 1}},
		{Label: "No"},
	}},
	{ID: 11, Topic: "loneliness", Options: []Option{
		{Label: "Always", Weight: Weight{Critical: 2}, Factor: "Constant loneliness inside the relationship"},
		{Label: "Sometimes", Weight: Weight{High: 1}},
		{Label: "Never"},
	}},
	{ID: 12, Topic: "partner_willingness", Options: []Option{
		{Label: "Refuses to change", Weight: Weight{Emergency: 1, Critical: 1}, Factor: "Partner refuses to change"},
		{Label: "Not sure", Weight: Weight{High: 1}},
		{Label: "Willing to work on it"},
	}},
	{ID: 13, Topic: "duration", Options: []Option{
		{Label: "More than a year", Weight: Weight{Critical: 2}, Factor: "Crisis lasting over a year"},
		{Label: "A few months", Weight: Weight{High: 2}},
		{Label: "A few weeks", Weight: Weight{High: 1}},
	}},
	{ID: 14, Topic: "leaving_thoughts", Options: []Option{
		{Label: "Every day", Weight: Weight{Emergency: 2}, Factor: "Daily thoughts of leaving"},
		{Label: "Occasionally", Weight: Weight{Critical: 1}, Factor: "Occasional thoughts of leaving"},
		{Label: "Never"},
	}},
	{ID: 15, Topic: "perceived_urgency", Options: []Option{
		{Label: "I need to act now", Weight: Weight{Emergency: 1}},
		{Label: "Soon", Weight: Weight{Critical: 1}},
		{Label: "It can wait", Weight: Weight{High: 1}},
	}},
}

// Questions returns a deep copy of the quiz catalogue.
func Questions() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]Option(nil), q.Options...)
		out[i] = q
	}
	return out
}
