package kestrel

// schedulerOptions holds configuration resolved at NewScheduler time.
type schedulerOptions struct {
	epollBatchSize int
	logger         Logger
}

// Option configures a Scheduler at construction.
type Option interface {
	applyScheduler(*schedulerOptions)
}

type optionFunc func(*schedulerOptions)

func (f optionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithEpollBatchSize sets how many events a single epoll_wait call may
// return at once. The default is 1024. Values <= 0 are ignored and the
// default is kept.
func WithEpollBatchSize(n int) Option {
	return optionFunc(func(o *schedulerOptions) {
		if n > 0 {
			o.epollBatchSize = n
		}
	})
}

// WithLogger attaches a diagnostic Logger to the Scheduler. The default is
// NoopLogger, so attaching one is purely an observability aid and never
// changes scheduling behavior.
func WithLogger(l Logger) Option {
	return optionFunc(func(o *schedulerOptions) {
		if l != nil {
			o.logger = l
		}
	})
}

const defaultEpollBatchSize = 1024

func resolveSchedulerOptions(opts []Option) schedulerOptions {
	cfg := schedulerOptions{
		epollBatchSize: defaultEpollBatchSize,
		logger:         NoopLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScheduler(&cfg)
	}
	return cfg
}
