package model

// Connection is an ordered pair (FromID, ToID): "the output of From may be
// read by To." The multiset of connections forms the workflow's directed
// graph; both endpoints must exist in the same workflow and the graph must
// be acyclic.
type Connection struct {
	FromID string
	ToID   string
}
