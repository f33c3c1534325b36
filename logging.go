package authd

// LoggerProvider resolves named, scoped loggers. The glog BaseLogger
// satisfies this interface directly.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type loggerProviderFunc func(name string) Logger

func (f loggerProviderFunc) GetLogger(name string) Logger {
	return f(name)
}

// ProviderFromLogger wraps a single logger into a LoggerProvider that
// returns it for every name.
func ProviderFromLogger(logger Logger) LoggerProvider {
	return loggerProviderFunc(func(string) Logger {
		return logger
	})
}

// DefaultLogger returns the stdout fallback logger used when callers do not
// inject one.
func DefaultLogger() Logger {
	return defLogger{}
}

// ResolveLogger picks the scoped logger for name from the provider,
// falling back to the given logger, and finally to the stdout default.
// It always returns a usable provider/logger pair.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if logger := provider.GetLogger(name); logger != nil {
			return provider, logger
		}
	}

	if fallback == nil {
		fallback = defLogger{}
	}

	return ProviderFromLogger(fallback), fallback
}
