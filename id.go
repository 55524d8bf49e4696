package lendpool

import "github.com/xraph/lendpool/id"

// ID is the primary identifier type for all Lendpool entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
