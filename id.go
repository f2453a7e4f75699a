package beema

import "github.com/prabhatkmr/beema-sub003/id"

// ID is the primary identifier type for all beema entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
