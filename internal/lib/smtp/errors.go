package smtp

import "errors"

// ErrNoStartTLS: сервер не поддерживает STARTTLS.
var ErrNoStartTLS = errors.New("STARTTLS not supported")
