package domain

import "errors"

// ErrDuplicate is returned by stores when a unique dedup key is already taken.
var ErrDuplicate = errors.New("duplicate record")
