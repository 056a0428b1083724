package core

// Tier is one of the four presentation states derived from a balance.
type Tier string

const (
	TierFlush    Tier = "Flush"
	TierStable   Tier = "Stable"
	TierWarning  Tier = "Warning"
	TierCritical Tier = "Critical"
)

// Mood bundles the presentation attributes of a tier. Nothing but the
// presentation layer reads the attributes.
type Mood struct {
	Tier    Tier
	Zombie  string
	Eyes    string
	Message string
	Subtext string
	Color   string // color token: green, cyan, yellow, red
}

var moods = map[Tier]Mood{
	TierFlush:    {Tier: TierFlush, Zombie: "🧟‍♂️", Eyes: "👀", Message: "RICH ZOMBIE!", Subtext: "Dinero = Cerebros", Color: "green"},
	TierStable:   {Tier: TierStable, Zombie: "🧟", Eyes: "🤖", Message: "ZOMBIE OK", Subtext: "Calculando...", Color: "cyan"},
	TierWarning:  {Tier: TierWarning, Zombie: "🧟‍♀️", Eyes: "⚠️", Message: "ZOMBIE ALERT", Subtext: "Sistema crítico", Color: "yellow"},
	TierCritical: {Tier: TierCritical, Zombie: "🧟‍♂️", Eyes: "💀", Message: "ZOMBIE BROKE", Subtext: "Error fatal", Color: "red"},
}

// Classify maps a balance to its mood. Checks run top to bottom and the
// first match wins.
func Classify(balance float64) Mood {
	switch {
	case balance > 200:
		return moods[TierFlush]
	case balance > 0:
		return moods[TierStable]
	case balance > -100:
		return moods[TierWarning]
	default:
		return moods[TierCritical]
	}
}
