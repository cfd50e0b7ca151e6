package errors

// Predefined sentinel errors for common failure cases in the platform
// provider and CLI grammar.
var (
	// ErrKernelTableUnreadable indicates a whole kernel table (the
	// process directory, or one of the /proc/net tables) could not be
	// read at all.
	ErrKernelTableUnreadable = &Error{
		Kind:   ErrPlatform,
		Detail: "kernel table unreadable",
	}

	// ErrNoSuchProcess indicates a single requested pid does not exist.
	ErrNoSuchProcess = &Error{
		Kind:   ErrProcessNotFound,
		Detail: "no such process",
	}

	// ErrProcessPermission indicates the caller lacks rights to inspect
	// a specific process.
	ErrProcessPermission = &Error{
		Kind:   ErrPermissionDenied,
		Detail: "permission denied",
	}

	// ErrBadSizeSpec indicates a -s size predicate failed to parse.
	ErrBadSizeSpec = &Error{
		Kind:   ErrParse,
		Detail: "invalid size spec",
	}

	// ErrBadPidSpec indicates a -p/-g selection spec contained a
	// non-numeric token.
	ErrBadPidSpec = &Error{
		Kind:   ErrParse,
		Detail: "invalid pid/pgid spec",
	}

	// ErrBadFieldSpec indicates a -F field-letter spec named an unknown
	// field.
	ErrBadFieldSpec = &Error{
		Kind:   ErrParse,
		Detail: "invalid field spec",
	}
)
