package serviceerr

import "errors"

var ErrConflict = errors.New("already exists")
var ErrNotFound = errors.New("not found")
var ErrInvalidConfig = errors.New("invalid game configuration")
var ErrCorruptSave = errors.New("corrupt save data")
var ErrNoSession = errors.New("no active game session")
