package ledger

import "zombiefinance/internal/core"

// Navigator is the screen state machine. The zero value is the no-session
// state.
//
//	no-session --login--> home
//	home --Navigate--> addIncome | addExpense
//	addIncome | addExpense --Back--> home
//	addIncome --income saved--> home
//	any --Logout--> no-session
type Navigator struct {
	screen core.Screen
	active bool
}

// Active reports whether a session is open.
func (n *Navigator) Active() bool { return n.active }

// Screen returns the current screen, or "" in the no-session state.
func (n *Navigator) Screen() core.Screen {
	if !n.active {
		return ""
	}
	return n.screen
}

// Start enters the session at s; invalid screens fall back to home.
func (n *Navigator) Start(s core.Screen) {
	if !s.Valid() {
		s = core.ScreenHome
	}
	n.screen, n.active = s, true
}

// End returns to the no-session state.
func (n *Navigator) End() {
	n.screen, n.active = "", false
}

// Navigate moves from home to an entry screen. Navigating to home is the
// same as Back. Every other transition is refused.
func (n *Navigator) Navigate(to core.Screen) bool {
	if !n.active || !to.Valid() {
		return false
	}
	if to == core.ScreenHome {
		return n.Back()
	}
	if n.screen != core.ScreenHome {
		return false
	}
	n.screen = to
	return true
}

// Back returns to home from an entry screen.
func (n *Navigator) Back() bool {
	if !n.active || n.screen == core.ScreenHome {
		return false
	}
	n.screen = core.ScreenHome
	return true
}

func (n *Navigator) set(s core.Screen) { n.screen = s }
