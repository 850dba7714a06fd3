package dialog

import "context"

func (m *Machine) registerStopwatchCommands(t *Table) {
	t.Register(ListeningStopwatch, "close", m.stopwatchClose, "close")
	t.Register(ListeningStopwatch, "start", m.stopwatchDo(func(s Stopwatch) { s.Start() }), "start")
	t.Register(ListeningStopwatch, "stop", m.stopwatchDo(func(s Stopwatch) { s.Stop() }), "stop")
	t.Register(ListeningStopwatch, "reset", m.stopwatchDo(func(s Stopwatch) { s.Reset() }), "reset")
}

func (m *Machine) stopwatchClose(_ context.Context, _ string) Mode {
	m.deps.Presenter.ShowDefaultView()
	return BackgroundDefault
}

func (m *Machine) stopwatchDo(fn func(Stopwatch)) Handler {
	return func(_ context.Context, _ string) Mode {
		if m.deps.Stopwatch != nil {
			fn(m.deps.Stopwatch)
		}
		return BackgroundStopwatch
	}
}
