package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"arc-onboarding/internal/model"
)

type sentText struct {
	chatID int64
	text   string
}

type forwarded struct {
	to, from  int64
	messageID int
}

type fakeMessenger struct {
	texts    []sentText
	docs     []string
	forwards []forwarded
	typing   int
	docErr   error
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	f.texts = append(f.texts, sentText{chatID: chatID, text: text})
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, chatID int64, path string) error {
	if f.docErr != nil {
		return f.docErr
	}
	f.docs = append(f.docs, path)
	return nil
}

func (f *fakeMessenger) Forward(_ context.Context, to, from int64, messageID int) error {
	f.forwards = append(f.forwards, forwarded{to: to, from: from, messageID: messageID})
	return nil
}

func (f *fakeMessenger) Typing(context.Context, int64) error {
	f.typing++
	return nil
}

func (f *fakeMessenger) textsTo(chatID int64) []string {
	var out []string
	for _, s := range f.texts {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func (f *fakeMessenger) last(chatID int64) string {
	texts := f.textsTo(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fakeLinks struct {
	links []string
	next  int
	err   error
}

func (f *fakeLinks) Next(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	link := f.links[f.next]
	f.next = (f.next + 1) % len(f.links)
	return link, nil
}

type fakeLedger struct {
	rows      map[string]int
	nextRow   int
	findErr   error
	createErr error
	created   []string
	statuses  map[int][]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[string]int{}, nextRow: 2, statuses: map[int][]string{}}
}

func (f *fakeLedger) FindByEmail(_ context.Context, email string) (int, bool, error) {
	if f.findErr != nil {
		return 0, false, f.findErr
	}
	row, ok := f.rows[email]
	return row, ok, nil
}

func (f *fakeLedger) CreateRow(_ context.Context, email, username string, userID int64) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	row := f.nextRow
	f.nextRow++
	f.rows[email] = row
	f.created = append(f.created, fmt.Sprintf("%s|%s|%d", email, username, userID))
	return row, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, row int, status string) error {
	f.statuses[row] = append(f.statuses[row], status)
	return nil
}

type fakeResponder struct {
	reply   Reply
	prompts []Prompt
}

func (f *fakeResponder) Respond(_ context.Context, p Prompt) Reply {
	f.prompts = append(f.prompts, p)
	return f.reply
}

type armedTimer struct {
	kind model.TimerKind
	at   time.Time
}

type fakeTimers struct {
	pending   map[int64][]armedTimer
	armed     int
	cancelled int
	armErr    error
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{pending: map[int64][]armedTimer{}}
}

func (f *fakeTimers) Arm(_ context.Context, a *model.Applicant, kind model.TimerKind, at time.Time) error {
	if f.armErr != nil {
		return f.armErr
	}
	f.armed++
	f.pending[a.TelegramID] = append(f.pending[a.TelegramID], armedTimer{kind: kind, at: at})
	return nil
}

func (f *fakeTimers) CancelAll(_ context.Context, id int64) error {
	f.cancelled += len(f.pending[id])
	delete(f.pending, id)
	return nil
}

var errUpstream = errors.New("upstream unavailable")

var errMissingGuide = fmt.Errorf("guide: %w", fs.ErrNotExist)
