package session

import "action-engine/internal/actions/intent"

// HistoryFilter narrows History. Zero values list the newest entries of every kind.
type HistoryFilter struct {
	Actions []intent.Kind
	Limit   int
}
