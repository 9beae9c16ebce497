package quotes

// bundled is the offline pool. It must never be empty: it is the last
// fallback for every request.
var bundled = []Quote{
	{ID: "local-001", Text: "The unexamined life is not worth living.", Author: "Socrates", Category: "philosophy"},
	{ID: "local-002", Text: "We are what we repeatedly do. Excellence, then, is not an act, but a habit.", Author: "Will Durant", Category: "habits"},
	{ID: "local-003", Text: "You have power over your mind, not outside events. Realize this, and you will find strength.", Author: "Marcus Aurelius", Category: "stoicism"},
	{ID: "local-004", Text: "It does not matter how slowly you go as long as you do not stop.", Author: "Confucius", Category: "perseverance"},
	{ID: "local-005", Text: "Simplicity is the ultimate sophistication.", Author: "Leonardo da Vinci", Category: "design"},
	{ID: "local-006", Text: "Well done is better than well said.", Author: "Benjamin Franklin", Category: "action"},
	{ID: "local-007", Text: "He who has a why to live can bear almost any how.", Author: "Friedrich Nietzsche", Category: "purpose"},
	{ID: "local-008", Text: "Luck is what happens when preparation meets opportunity.", Author: "Seneca", Category: "stoicism"},
	{ID: "local-009", Text: "The journey of a thousand miles begins with one step.", Author: "Lao Tzu", Category: "beginnings"},
	{ID: "local-010", Text: "Knowing yourself is the beginning of all wisdom.", Author: "Aristotle", Category: "wisdom"},
	{ID: "local-011", Text: "Do what you can, with what you have, where you are.", Author: "Theodore Roosevelt", Category: "action"},
	{ID: "local-012", Text: "Waste no more time arguing what a good man should be. Be one.", Author: "Marcus Aurelius", Category: "stoicism"},
	{ID: "local-013", Text: "Simple things should be simple, complex things should be possible.", Author: "Alan Kay", Category: "programming"},
	{ID: "local-014", Text: "Nothing in life is to be feared, it is only to be understood.", Author: "Marie Curie", Category: "courage"},
	{ID: "local-015", Text: "In the middle of difficulty lies opportunity.", Author: "Albert Einstein", Category: "opportunity"},
	{ID: "local-016", Text: "First, solve the problem. Then, write the code.", Author: "John Johnson", Category: "programming"},
	{ID: "local-017", Text: "Happiness depends upon ourselves.", Author: "Aristotle", Category: "happiness"},
	{ID: "local-018", Text: "The best way out is always through.", Author: "Robert Frost", Category: "perseverance"},
	{ID: "local-019", Text: "What we think, we become.", Author: "Buddha", Category: "mindfulness"},
	{ID: "local-020", Text: "Difficulties strengthen the mind, as labor does the body.", Author: "Seneca", Category: "stoicism"},
	{ID: "local-021", Text: "Act as if what you do makes a difference. It does.", Author: "William James", Category: "action"},
	{ID: "local-022", Text: "The secret of getting ahead is getting started.", Author: "Mark Twain", Category: "beginnings"},
	{ID: "local-023", Text: "Make it work, make it right, make it fast.", Author: "Kent Beck", Category: "programming"},
	{ID: "local-024", Text: "Be kind, for everyone you meet is fighting a hard battle.", Author: "Ian Maclaren", Category: "kindness"},
}

// LocalQuotes returns a copy of the bundled pool stamped with the local source.
func LocalQuotes() []Quote {
	out := make([]Quote, len(bundled))
	for i, q := range bundled {
		q.Source = SourceLocal
		out[i] = q
	}
	return out
}
