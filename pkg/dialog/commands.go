package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/reminder"
)

// errUnavailable marks a command whose provider is not configured.
var errUnavailable = errors.New("dialog: provider not configured")

// Reminder prompts.
const (
	promptReminderDate    = "For which day?"
	promptReminderContent = "What should I remember?"
	retryReminderDate     = "Please, repeat the date."
	retryReminderContent  = "Please, repeat the reminder."
	reminderSaved         = "Reminder saved."
	reminderFailed        = "Sorry, I couldn't create the reminder."

	// contentAttempts bounds the reminder content capture. The date
	// capture is unbounded.
	contentAttempts = 3
)

func (m *Machine) buildTable() *Table {
	t := NewTable(m.unrecognized)

	t.Register(ListeningDefault, "time", m.tellTime, "what time is it")
	t.Register(ListeningDefault, "day", m.tellDay, "what day is today")
	t.Register(ListeningDefault, "joke", m.tellJoke, "tell me a joke")
	t.Register(ListeningDefault, "music", m.playMusic, "play some music")
	t.Register(ListeningDefault, "make_reminder", m.makeReminder, "take a reminder", "make a reminder")
	t.Register(ListeningDefault, "query_reminders", m.queryReminders, "any plans for today", "any plans today")
	t.Register(ListeningDefault, "encyclopedia", m.somethingInteresting, "tell me something interesting")
	t.Register(ListeningDefault, "weather", m.tellWeather, "what's the weather like today", "how's the weather today")
	t.Register(ListeningDefault, "quote", m.inspire, "inspire me")
	t.Register(ListeningDefault, "stopwatch", m.openStopwatch, "open the stopwatch")
	t.Register(ListeningDefault, "recipe", m.findRecipe, "find a recipe for me")
	t.Register(ListeningDefault, "calendar", m.tellCalendar, "what's on my calendar", "any events today")

	m.registerMediaCommands(t)
	m.registerStopwatchCommands(t)
	return t
}

func (m *Machine) unrecognized(ctx context.Context, mode Mode, text string) Mode {
	m.logger.Info("unrecognized command", "mode", mode, "text", text)
	m.say(ctx, ApologyUnknown)
	return mode.Background()
}

// failed reports a collaborator failure and returns to BackgroundDefault.
func (m *Machine) failed(ctx context.Context, command string, err error) Mode {
	m.logger.Warn("command failed", "command", command, "error", err)
	m.say(ctx, ApologyCollaborator)
	return BackgroundDefault
}

func (m *Machine) tellTime(ctx context.Context, _ string) Mode {
	now := m.now()
	m.say(ctx, fmt.Sprintf("It's %02d:%02d", now.Hour(), now.Minute()))
	return BackgroundDefault
}

func (m *Machine) tellDay(ctx context.Context, _ string) Mode {
	m.say(ctx, m.now().Format("Monday, January 2, 2006"))
	return BackgroundDefault
}

func (m *Machine) tellJoke(ctx context.Context, _ string) Mode {
	if m.deps.Jokes == nil {
		return m.failed(ctx, "joke", errUnavailable)
	}
	joke, err := m.deps.Jokes.Joke(ctx)
	if err != nil {
		return m.failed(ctx, "joke", err)
	}
	m.say(ctx, joke)
	return BackgroundDefault
}

func (m *Machine) inspire(ctx context.Context, _ string) Mode {
	if m.deps.Quotes == nil {
		return m.failed(ctx, "quote", errUnavailable)
	}
	q, err := m.deps.Quotes.QuoteOfTheDay(ctx)
	if err != nil {
		return m.failed(ctx, "quote", err)
	}
	m.say(ctx, q.Text)
	return BackgroundDefault
}

func (m *Machine) somethingInteresting(ctx context.Context, _ string) Mode {
	if m.deps.Encyclopedia == nil {
		return m.failed(ctx, "encyclopedia", errUnavailable)
	}
	text, err := m.deps.Encyclopedia.Random(ctx)
	if err != nil {
		return m.failed(ctx, "encyclopedia", err)
	}
	m.say(ctx, text)
	return BackgroundDefault
}

func (m *Machine) tellWeather(ctx context.Context, _ string) Mode {
	if m.deps.Locator == nil || m.deps.Weather == nil {
		return m.failed(ctx, "weather", errUnavailable)
	}
	pos, err := m.deps.Locator.Locate(ctx)
	if err != nil {
		return m.failed(ctx, "weather", err)
	}
	w, err := m.deps.Weather.Current(ctx, pos)
	if err != nil {
		return m.failed(ctx, "weather", err)
	}

	m.deps.Presenter.ShowWeatherView(w)
	m.say(ctx, w.Summary())
	m.deps.Presenter.ShowDefaultView()
	return BackgroundDefault
}

func (m *Machine) playMusic(ctx context.Context, _ string) Mode {
	if m.deps.Playlist.Len() == 0 {
		m.logger.Warn("command failed", "command", "music", "error", media.ErrEmptyPlaylist)
		m.say(ctx, "I'm sorry, there is no music to play.")
		return BackgroundDefault
	}
	if m.session.TrackIndex >= m.deps.Playlist.Len() {
		m.session.TrackIndex = 0
	}

	m.deps.Presenter.ShowMediaView()
	m.session.SavedVolume = m.cfg.DefaultVolume
	m.applyVolume(ctx, m.session.SavedVolume)

	if err := m.playCurrent(ctx); err != nil {
		m.deps.Presenter.ShowDefaultView()
		return m.failed(ctx, "music", err)
	}
	return BackgroundMedia
}

func (m *Machine) openStopwatch(_ context.Context, _ string) Mode {
	m.deps.Presenter.ShowStopwatchView()
	return BackgroundStopwatch
}

func (m *Machine) makeReminder(ctx context.Context, _ string) Mode {
	date, err := Capture{
		Question: promptReminderDate,
		Retry:    retryReminderDate,
		Grammar:  GrammarReminderDate,
	}.Run(ctx, m.deps.Voice, m.deps.Recognizer, m.recognizeOptions(""))
	if err != nil {
		return m.reminderFailed(ctx, "date", err)
	}

	details, err := Capture{
		Question:    promptReminderContent,
		Retry:       retryReminderContent,
		MaxAttempts: contentAttempts,
	}.Run(ctx, m.deps.Voice, m.deps.Recognizer, m.recognizeOptions(""))
	if err != nil {
		return m.reminderFailed(ctx, "content", err)
	}

	r := reminder.New(date, details)
	m.deps.Reminders.Add(r)
	m.logger.Info("reminder saved", "month", r.Month, "day", r.Day)
	m.say(ctx, reminderSaved)
	return BackgroundDefault
}

func (m *Machine) reminderFailed(ctx context.Context, leg string, err error) Mode {
	m.logger.Warn("reminder capture failed", "leg", leg, "error", err)
	if ctx.Err() == nil {
		m.say(ctx, reminderFailed)
	}
	return BackgroundDefault
}

func (m *Machine) queryReminders(ctx context.Context, _ string) Mode {
	for _, line := range reminder.Announce(m.deps.Reminders.Today(m.now())) {
		m.say(ctx, line)
	}
	return BackgroundDefault
}

func (m *Machine) findRecipe(ctx context.Context, _ string) Mode {
	if m.deps.Recipes == nil {
		return m.failed(ctx, "recipe", errUnavailable)
	}

	m.say(ctx, "What do you want to cook?")
	dish, err := m.deps.Recognizer.RecognizeOnce(ctx, m.recognizeOptions(""))
	if err != nil {
		m.logger.Warn("dish recognition failed", "error", err)
		dish = ""
	}
	if Normalize(dish) == "" {
		m.say(ctx, ApologyUnknown)
		return BackgroundDefault
	}

	m.show(ctx, "Searching a recipe for "+dish)
	recipe, err := m.deps.Recipes.Search(ctx, dish)
	if err != nil {
		return m.failed(ctx, "recipe", err)
	}

	m.deps.Presenter.ShowRecipeView(recipe)

	// Held until the user leaves the recipe view.
	select {
	case <-m.recipeExit:
	case <-ctx.Done():
		return BackgroundDefault
	}

	m.deps.Presenter.ShowDefaultView()
	return BackgroundDefault
}

func (m *Machine) tellCalendar(ctx context.Context, _ string) Mode {
	if m.deps.Calendar == nil || !m.deps.Calendar.IsAuthenticated() {
		m.say(ctx, "I'm sorry, your calendar is not connected.")
		return BackgroundDefault
	}
	events, err := m.deps.Calendar.Today(ctx, m.now())
	if err != nil {
		return m.failed(ctx, "calendar", err)
	}
	if len(events) == 0 {
		m.say(ctx, "You have no events today.")
		return BackgroundDefault
	}
	for _, ev := range events {
		m.say(ctx, ev.Spoken())
	}
	return BackgroundDefault
}
