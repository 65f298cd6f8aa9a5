package aggregate

import "errors"

// ErrAggregationType is returned when an NcML descriptor names an
// aggregation type other than joinExisting, the only kind this package
// implements.
var ErrAggregationType = errors.New("aggregate: unsupported aggregation type")

// ErrNoDimension is returned when an aggregation element carries no
// dimName attribute.
var ErrNoDimension = errors.New("aggregate: no aggregation dimension")

// ErrNoMembers is returned when an aggregation descriptor resolves to zero
// member files, whether because no netcdf/scan children were present or a
// scan matched nothing.
var ErrNoMembers = errors.New("aggregate: no members")

// ErrInconsistentMembers is returned when a member's variable set or
// non-aggregation dimensions disagree with the first member's.
var ErrInconsistentMembers = errors.New("aggregate: inconsistent members")

// ErrMemberChanged is returned when a member file's mtime no longer
// matches the snapshot taken when the aggregate was loaded. Recovery
// (reopening the aggregate) is the caller's responsibility.
var ErrMemberChanged = errors.New("aggregate: member changed on disk")

// ErrStridedAxis is returned when a request applies a non-unit stride to
// the aggregation dimension: a strided selection that crosses a member
// boundary has no well-defined local-offset mapping, so it is rejected
// rather than silently mishandled.
var ErrStridedAxis = errors.New("aggregate: strided aggregation axis not supported")
