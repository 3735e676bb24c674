package chatbot

// Profile describes a chatbot served by the development backend.
type Profile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tone        string   `json:"tone"`
	PromptHint  string   `json:"promptHint"`
	Greeting    string   `json:"greeting"`
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// Seed provides the chatbots known to a fresh development backend.
func Seed() []Profile {
	return []Profile{
		{
			ID:          "db0274b1-784f-4730-a225-d43d86444745",
			Name:        "Bastel Laden",
			Tone:        "freundlich, hilfsbereit, kurz",
			PromptHint:  "Antworte auf Deutsch und empfiehl passende Bastelmaterialien aus dem Sortiment.",
			Greeting:    "👋 Hi! Wie kann ich dir helfen?",
			Description: "Kundenservice eines Bastelladens: Materialien, Öffnungszeiten, Bestellungen.",
			Topics:      []string{"Bastelmaterial", "Öffnungszeiten", "Bestellungen", "Workshops"},
		},
		{
			ID:          "demo",
			Name:        "Demo Assistant",
			Tone:        "concise, friendly",
			PromptHint:  "Answer in the language of the visitor and keep replies short.",
			Greeting:    "Hi! Ask me anything about this site.",
			Description: "General purpose assistant used on demo pages.",
		},
	}
}
