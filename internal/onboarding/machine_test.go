package onboarding

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arc-onboarding/internal/model"
)

const (
	operatorChat = int64(-1000)
	userID       = int64(77)
	userChat     = int64(7700)
)

var testNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	machine   *Machine
	messenger *fakeMessenger
	links     *fakeLinks
	ledger    *fakeLedger
	responder *fakeResponder
	timers    *fakeTimers
	applicant *model.Applicant
}

func newHarness(flow Flow) *harness {
	h := &harness{
		messenger: &fakeMessenger{},
		links:     &fakeLinks{links: []string{"https://arc.example/L1", "https://arc.example/L2"}},
		ledger:    newFakeLedger(),
		responder: &fakeResponder{reply: Reply{Text: "Happy to help!"}},
		timers:    newFakeTimers(),
		applicant: &model.Applicant{TelegramID: userID, ChatID: userChat, FirstName: "Ada", State: model.StateNew},
	}
	h.machine = NewMachine(flow, operatorChat, Deps{
		Messenger: h.messenger,
		Links:     h.links,
		Ledger:    h.ledger,
		Responder: h.responder,
		Timers:    h.timers,
	}).WithClock(func() time.Time { return testNow })
	return h
}

func fullFlow() Flow {
	return Flow{EmailGate: true, UsernameStep: true, ReminderAfter: 23 * time.Hour, ExpireAfter: 24 * time.Hour, GuidePath: "guide.pdf"}
}

func (h *harness) handle(t *testing.T, ev Event) {
	t.Helper()
	require.NoError(t, h.machine.Handle(context.Background(), h.applicant, ev))
}

func text(s string) Event { return Event{Kind: EventText, Text: s, Username: "ada_l"} }

func photo(id int) Event { return Event{Kind: EventPhoto, MessageID: id, Username: "ada_l"} }

func TestFullOnboardingScenario(t *testing.T) {
	h := newHarness(fullFlow())

	h.handle(t, text("hi"))
	assert.Equal(t, model.StateAwaitingEmail, h.applicant.State)
	assert.Contains(t, h.messenger.last(userChat), "email address")

	h.handle(t, text("me@example.com"))
	require.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Equal(t, "https://arc.example/L1", h.applicant.AssignedLink)
	assert.Contains(t, h.messenger.last(userChat), "https://arc.example/L1")
	assert.Equal(t, []string{"me@example.com|@ada_l|77"}, h.ledger.created)
	require.NotNil(t, h.applicant.SheetRow)
	assert.Equal(t, 2, *h.applicant.SheetRow)
	assert.Equal(t, []armedTimer{
		{kind: model.TimerReminder, at: testNow.Add(23 * time.Hour)},
		{kind: model.TimerExpiration, at: testNow.Add(24 * time.Hour)},
	}, h.timers.pending[userID])

	h.handle(t, photo(555))
	assert.Equal(t, model.StateAwaitingUsername, h.applicant.State)
	assert.Empty(t, h.timers.pending[userID])
	assert.Equal(t, 2, h.timers.cancelled)
	require.NotNil(t, h.applicant.ScreenshotMessageID)
	assert.Equal(t, 555, *h.applicant.ScreenshotMessageID)
	assert.Contains(t, h.messenger.last(operatorChat), "Screenshot received")

	h.handle(t, text("@validuser"))
	assert.Equal(t, model.StateAwaitingVerification, h.applicant.State)
	assert.Equal(t, "@validuser", h.applicant.TelegramUsername)
	summary := h.messenger.last(operatorChat)
	assert.Contains(t, summary, "@validuser")
	assert.Contains(t, summary, "me@example.com")
	assert.Contains(t, summary, "https://arc.example/L1")
	assert.Equal(t, []forwarded{{to: operatorChat, from: userChat, messageID: 555}}, h.messenger.forwards)
	assert.Equal(t, []string{LedgerStatusLinkSent, LedgerStatusScreenshotReceived, LedgerStatusAwaitingVerification}, h.ledger.statuses[2])
}

func TestExistingLedgerRowIsReused(t *testing.T) {
	h := newHarness(fullFlow())
	h.ledger.rows["me@example.com"] = 17
	h.applicant.State = model.StateAwaitingEmail

	h.handle(t, text("  Me@Example.com "))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Empty(t, h.ledger.created)
	assert.Equal(t, 17, *h.applicant.SheetRow)
	assert.Equal(t, "me@example.com", h.applicant.Email)
}

func TestInvalidEmailKeepsState(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingEmail

	h.handle(t, text("a@b"))
	assert.Equal(t, model.StateAwaitingEmail, h.applicant.State)
	assert.Equal(t, msgAskEmailRetry, h.messenger.last(userChat))
	assert.Zero(t, h.timers.armed)

	h.handle(t, photo(1))
	assert.Equal(t, model.StateAwaitingEmail, h.applicant.State)
}

func TestLedgerFailureKeepsApplicantInEmailStep(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingEmail
	h.ledger.findErr = errUpstream

	h.handle(t, text("me@example.com"))
	assert.Equal(t, model.StateAwaitingEmail, h.applicant.State)
	assert.Equal(t, msgLedgerTrouble, h.messenger.last(userChat))
	assert.Empty(t, h.applicant.AssignedLink)
	assert.Zero(t, h.timers.armed)

	h.ledger.findErr = nil
	h.handle(t, text("me@example.com"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
}

func TestTimerArmFailureDoesNotAdvance(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingEmail
	h.timers.armErr = errUpstream

	h.handle(t, text("me@example.com"))
	assert.Equal(t, model.StateAwaitingEmail, h.applicant.State)
	assert.Equal(t, msgStartTrouble, h.messenger.last(userChat))

	h.timers.armErr = nil
	h.handle(t, text("me@example.com"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Equal(t, "https://arc.example/L1", h.applicant.AssignedLink, "link is kept across retries")
	assert.Equal(t, 1, h.links.next)
}

func TestScreenshotStageText(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingScreenshot
	h.applicant.AssignedLink = "https://arc.example/L2"

	h.handle(t, text("how does this work?"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Equal(t, "Happy to help!", h.messenger.last(userChat))
	assert.Equal(t, 1, h.messenger.typing)
	require.Len(t, h.responder.prompts, 1)
	assert.Equal(t, Prompt{State: model.StateAwaitingScreenshot, FirstName: "Ada", AssignedLink: "https://arc.example/L2", Message: "how does this work?"}, h.responder.prompts[0])

	h.handle(t, Event{Kind: EventOther})
	assert.Equal(t, msgAskScreenshot, h.messenger.last(userChat))
}

func TestResponderFallbackNeverChangesState(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingScreenshot
	h.responder.reply = Reply{Text: "I'm having a little trouble connecting right now."}

	h.handle(t, text("what about payment?"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Equal(t, "I'm having a little trouble connecting right now.", h.messenger.last(userChat))
}

func TestGuideAttachment(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingScreenshot
	h.responder.reply = Reply{Text: "This guide explains payments.", AttachGuide: true}

	h.handle(t, text("how do I get paid?"))
	assert.Equal(t, []string{"guide.pdf"}, h.messenger.docs)

	h.messenger.docErr = errMissingGuide
	h.handle(t, text("and again?"))
	assert.Equal(t, msgGuideMissing, h.messenger.last(userChat))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
}

func TestUsernameValidationMessages(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingUsername
	msgID := 9
	h.applicant.ScreenshotMessageID = &msgID

	h.handle(t, text("@JohnDoe"))
	assert.Equal(t, model.StateAwaitingUsername, h.applicant.State)
	assert.Equal(t, msgUsernameInvalid, h.messenger.last(userChat))

	h.handle(t, photo(10))
	assert.Equal(t, msgUsernamePlainText, h.messenger.last(userChat))
	assert.Equal(t, 9, *h.applicant.ScreenshotMessageID)

	h.handle(t, text("@johndoe"))
	assert.Equal(t, model.StateAwaitingVerification, h.applicant.State)
}

func TestReminderAndExpiration(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingScreenshot

	h.handle(t, Event{Kind: EventReminder})
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Contains(t, h.messenger.last(userChat), "about 1 hour left")

	h.handle(t, Event{Kind: EventExpiration})
	assert.Equal(t, model.StateExpired, h.applicant.State)

	h.handle(t, Event{Kind: EventOther})
	assert.Contains(t, h.messenger.last(userChat), "expired")
}

func TestStaleTimersAreNoOps(t *testing.T) {
	for _, state := range []model.State{model.StateNew, model.StateAwaitingEmail, model.StateAwaitingUsername, model.StateAwaitingVerification, model.StateExpired} {
		h := newHarness(fullFlow())
		h.applicant.State = state

		h.handle(t, Event{Kind: EventExpiration})
		h.handle(t, Event{Kind: EventReminder})
		assert.Equal(t, state, h.applicant.State)
		assert.Empty(t, h.messenger.texts, state)
	}
}

func TestExpirationAfterScreenshotIsIgnored(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = model.StateAwaitingScreenshot

	h.handle(t, photo(3))
	h.handle(t, Event{Kind: EventExpiration})
	assert.Equal(t, model.StateAwaitingUsername, h.applicant.State)
}

func TestFlowWithoutEmailGate(t *testing.T) {
	flow := fullFlow()
	flow.EmailGate = false
	h := newHarness(flow)

	h.handle(t, text("hello"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Contains(t, h.messenger.last(userChat), "https://arc.example/L1")
	assert.Len(t, h.timers.pending[userID], 2)
	assert.Empty(t, h.ledger.created)
}

func TestStoredEmailStepFinishesWithoutLedger(t *testing.T) {
	flow := fullFlow()
	flow.EmailGate = false
	h := newHarness(flow)
	h.machine.deps.Ledger = nil
	h.applicant.State = model.StateAwaitingEmail

	h.handle(t, text("Me@Example.com"))
	assert.Equal(t, model.StateAwaitingScreenshot, h.applicant.State)
	assert.Equal(t, "me@example.com", h.applicant.Email)
	assert.Nil(t, h.applicant.SheetRow)
	assert.Contains(t, h.messenger.last(userChat), "https://arc.example/L1")
	assert.Len(t, h.timers.pending[userID], 2)

	h.handle(t, photo(12))
	assert.Equal(t, model.StateAwaitingUsername, h.applicant.State)
}

func TestFlowWithoutUsernameStep(t *testing.T) {
	flow := fullFlow()
	flow.UsernameStep = false
	h := newHarness(flow)
	h.applicant.State = model.StateAwaitingScreenshot

	h.handle(t, photo(42))
	assert.Equal(t, model.StateAwaitingVerification, h.applicant.State)
	assert.Equal(t, "@ada_l", h.applicant.TelegramUsername)
	assert.Equal(t, msgScreenshotThanks, h.messenger.last(userChat))
	assert.Equal(t, []forwarded{{to: operatorChat, from: userChat, messageID: 42}}, h.messenger.forwards)

	h.handle(t, photo(43))
	assert.Equal(t, msgVerificationQueued, h.messenger.last(userChat))
}

func TestClosedStatesDelegateText(t *testing.T) {
	for _, state := range []model.State{model.StateAwaitingVerification, model.StateExpired} {
		h := newHarness(fullFlow())
		h.applicant.State = state

		h.handle(t, text("any news?"))
		assert.Equal(t, state, h.applicant.State)
		require.Len(t, h.responder.prompts, 1)
		assert.Equal(t, state, h.responder.prompts[0].State)
	}
}

func TestUnknownStateIsRejected(t *testing.T) {
	h := newHarness(fullFlow())
	h.applicant.State = "limbo"

	err := h.machine.Handle(context.Background(), h.applicant, text("hi"))
	assert.ErrorIs(t, err, model.ErrUnknownState)
}

func TestRandomEventsOnlyFollowEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inputs := []Event{
		text("hi"), text("me@example.com"), text("nope"), text("@validuser"), text("@Bad"),
		photo(1), {Kind: EventOther}, {Kind: EventReminder}, {Kind: EventExpiration},
	}

	for _, flow := range []Flow{fullFlow(), {ReminderAfter: time.Hour, ExpireAfter: 2 * time.Hour}} {
		for run := 0; run < 50; run++ {
			h := newHarness(flow)
			for step := 0; step < 30; step++ {
				before := h.applicant.State
				h.handle(t, inputs[rng.Intn(len(inputs))])
				after := h.applicant.State
				if before != after {
					assert.True(t, model.CanTransition(before, after), "%s -> %s", before, after)
				}
				if after != model.StateAwaitingScreenshot {
					assert.Empty(t, h.timers.pending[userID], "timers left pending in %s", after)
				}
			}
		}
	}
}
