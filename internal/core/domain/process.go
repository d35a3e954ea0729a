package domain

// ProcessHandle is the session's exclusive grip on one transcoding
// subprocess. Done is closed once the process has exited and its exit
// status is observable.
type ProcessHandle interface {
	Stop() error
	IsAlive() bool
	ExitStatus() (code int, exited bool)
	Done() <-chan struct{}
}
