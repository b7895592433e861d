package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"refbot/internal/metrics"
	"refbot/internal/model"
	"refbot/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateAwaitTrigger
	StateAwaitDescription
	StateAwaitResponseBody
	StateAwaitKind
	StateAwaitImage
	StateAwaitInlineLinksDecision
	StateAwaitInlineLinksPayload
	StateAwaitMarkupDecision
	StateAwaitMarkupPayload
	StateAwaitEditTarget
	StateAwaitEditField
	StateAwaitEditValue
	StateAwaitTarget
	StateAwaitConfirmation
	StateCommit
	StateDone
)

var stateNames = map[State]string{
	StateIdle:                     "idle",
	StateAwaitTrigger:             "await_trigger",
	StateAwaitDescription:         "await_description",
	StateAwaitResponseBody:        "await_response_body",
	StateAwaitKind:                "await_kind",
	StateAwaitImage:               "await_image",
	StateAwaitInlineLinksDecision: "await_inline_links_decision",
	StateAwaitInlineLinksPayload:  "await_inline_links_payload",
	StateAwaitMarkupDecision:      "await_markup_decision",
	StateAwaitMarkupPayload:       "await_markup_payload",
	StateAwaitEditTarget:          "await_edit_target",
	StateAwaitEditField:           "await_edit_field",
	StateAwaitEditValue:           "await_edit_value",
	StateAwaitTarget:              "await_target",
	StateAwaitConfirmation:        "await_confirmation",
	StateCommit:                   "commit",
	StateDone:                     "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

type Flow int

const (
	FlowAddCommand Flow = iota + 1
	FlowEditCommand
	FlowDeleteCommand
	FlowAddAdmin
	FlowDeleteAdmin
)

const (
	EditFieldDescription = "Description"
	EditFieldResponse    = "Response"
	EditFieldAdminStatus = "Admin Status"

	KindCommand = "command"
	KindText    = "text"

	cancelHint = "\n\nUse /cancel to cancel"
)

// Session is the per-admin accumulator of one authoring flow.
type Session struct {
	mu sync.Mutex

	SenderID  int64
	Flow      Flow
	State     State
	Draft     model.CommandEntry
	EditField string
	AdminID   int64

	touched atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.touched.Store(now.UnixNano())
}

func (s *Session) lastSeen() time.Time {
	return time.Unix(0, s.touched.Load())
}

type Input struct {
	Text    string
	PhotoID string
}

// Prompt is what the transport sends back to the admin after a step.
type Prompt struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
	Done           bool
}

type stepFunc func(ctx context.Context, s *Session, in Input) (State, error)

type Authoring struct {
	registry *CommandRegistry
	admins   AdminManager
	images   ImageStore
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session

	steps   map[State]stepFunc
	prompts map[State]func(s *Session) Prompt
	commits map[Flow]func(ctx context.Context, s *Session) string

	cron *cron.Cron
}

func NewAuthoring(registry *CommandRegistry, admins AdminManager, images ImageStore, ttl time.Duration) *Authoring {
	a := &Authoring{
		registry: registry,
		admins:   admins,
		images:   images,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}

	a.steps = map[State]stepFunc{
		StateAwaitTrigger:             a.onTrigger,
		StateAwaitDescription:         a.onDescription,
		StateAwaitResponseBody:        a.onResponseBody,
		StateAwaitKind:                a.onKind,
		StateAwaitImage:               a.onImage,
		StateAwaitInlineLinksDecision: a.onInlineLinksDecision,
		StateAwaitInlineLinksPayload:  a.onInlineLinksPayload,
		StateAwaitMarkupDecision:      a.onMarkupDecision,
		StateAwaitMarkupPayload:       a.onMarkupPayload,
		StateAwaitEditTarget:          a.onEditTarget,
		StateAwaitEditField:           a.onEditField,
		StateAwaitEditValue:           a.onEditValue,
		StateAwaitTarget:              a.onTarget,
		StateAwaitConfirmation:        a.onConfirmation,
	}

	a.prompts = map[State]func(s *Session) Prompt{
		StateAwaitTrigger:             promptTrigger,
		StateAwaitDescription:         staticPrompt("Enter the description:"),
		StateAwaitResponseBody:        staticPrompt("Enter the response:"),
		StateAwaitKind:                keyboardPrompt("Is this a slash command or a free-text trigger?", KindCommand, KindText),
		StateAwaitImage:               staticPrompt("Upload an image here, else send 'no'"),
		StateAwaitInlineLinksDecision: keyboardPrompt("Do you want to add inline links? (yes/no)", "yes", "no"),
		StateAwaitInlineLinksPayload:  staticPrompt("Send the links in the format: Text1,URL1;Text2,URL2;..."),
		StateAwaitMarkupDecision:      keyboardPrompt("Do you want to add markup buttons? (yes/no)", "yes", "no"),
		StateAwaitMarkupPayload:       staticPrompt("Send the buttons in the format: Button1,Button2,Button3"),
		StateAwaitEditTarget:          staticPrompt("Enter the command you want to edit:"),
		StateAwaitEditField:           keyboardPrompt("What do you want to edit?", EditFieldDescription, EditFieldResponse, EditFieldAdminStatus),
		StateAwaitEditValue:           promptEditValue,
		StateAwaitTarget:              promptTarget,
		StateAwaitConfirmation:        promptConfirmation,
	}

	a.commits = map[Flow]func(ctx context.Context, s *Session) string{
		FlowAddCommand:    a.commitAddCommand,
		FlowEditCommand:   a.commitEditCommand,
		FlowDeleteCommand: a.commitDeleteCommand,
		FlowAddAdmin:      a.commitAddAdmin,
		FlowDeleteAdmin:   a.commitDeleteAdmin,
	}

	return a
}

var flowStart = map[Flow]State{
	FlowAddCommand:    StateAwaitTrigger,
	FlowEditCommand:   StateAwaitEditTarget,
	FlowDeleteCommand: StateAwaitTarget,
	FlowAddAdmin:      StateAwaitTarget,
	FlowDeleteAdmin:   StateAwaitTarget,
}

// Start opens a flow for an admin. A sender can hold one session at a time.
func (a *Authoring) Start(ctx context.Context, senderID int64, flow Flow) (*Prompt, error) {
	first, ok := flowStart[flow]
	if !ok {
		return nil, fmt.Errorf("unknown flow %d", flow)
	}

	isAdmin, err := a.admins.IsAdmin(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrForbidden
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.sessions[senderID]; exists {
		return nil, ErrSessionActive
	}

	s := &Session{SenderID: senderID, Flow: flow, State: first}
	s.touch(a.now())
	a.sessions[senderID] = s
	metrics.SetActiveSessions(len(a.sessions))

	p := a.prompts[first](s)
	return &p, nil
}

func (a *Authoring) Active(senderID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.sessions[senderID]
	return ok
}

// Handle feeds one input into the sender's open session. The second return
// value is false when the sender has no session.
func (a *Authoring) Handle(ctx context.Context, senderID int64, in Input) (*Prompt, bool, error) {
	a.mu.Lock()
	s, ok := a.sessions[senderID]
	a.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !a.current(s) {
		return nil, false, nil
	}
	s.touch(a.now())

	step, ok := a.steps[s.State]
	if !ok {
		a.remove(s)
		return nil, true, fmt.Errorf("session in non-interactive state %s", s.State)
	}

	next, err := step(ctx, s, in)
	if err != nil {
		if errors.Is(err, ErrParse) {
			logger.Logger().Debug("authoring input rejected",
				zap.Int64("telegram_id", senderID),
				zap.Stringer("state", s.State),
				zap.Error(err))

			p := a.prompts[s.State](s)
			p.Text = parseMessage(err) + "\n\n" + p.Text
			return &p, true, nil
		}
		a.remove(s)
		return nil, true, err
	}

	return a.advance(ctx, s, next), true, nil
}

func (a *Authoring) advance(ctx context.Context, s *Session, next State) *Prompt {
	s.State = next

	switch next {
	case StateCommit:
		text := a.commits[s.Flow](ctx, s)
		s.State = StateDone
		a.remove(s)
		return &Prompt{Text: text, RemoveKeyboard: true, Done: true}
	case StateDone:
		a.remove(s)
		return &Prompt{Text: s.doneText(), RemoveKeyboard: true, Done: true}
	}

	p := a.prompts[next](s)
	return &p
}

// Cancel discards the sender's session without side effects.
func (a *Authoring) Cancel(senderID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sessions[senderID]; !ok {
		return false
	}
	delete(a.sessions, senderID)
	metrics.SetActiveSessions(len(a.sessions))
	return true
}

// Sweep drops sessions idle for longer than the TTL and reports how many.
func (a *Authoring) Sweep(now time.Time) int {
	if a.ttl <= 0 {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	expired := 0
	for id, s := range a.sessions {
		if now.Sub(s.lastSeen()) > a.ttl {
			delete(a.sessions, id)
			expired++
		}
	}
	if expired > 0 {
		metrics.SetActiveSessions(len(a.sessions))
		logger.Logger().Info("expired authoring sessions", zap.Int("count", expired))
	}
	return expired
}

func (a *Authoring) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { a.Sweep(a.now()) }); err != nil {
		return fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	a.cron = c
	c.Start()
	return nil
}

func (a *Authoring) Stop() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
	a.cron = nil
}

func (a *Authoring) current(s *Session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[s.SenderID] == s
}

func (a *Authoring) remove(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessions[s.SenderID] == s {
		delete(a.sessions, s.SenderID)
		metrics.SetActiveSessions(len(a.sessions))
	}
}

func (s *Session) doneText() string {
	if s.Flow == FlowDeleteCommand {
		return "Deletion cancelled."
	}
	return "Action Successfully cancelled"
}

// steps

func (a *Authoring) onTrigger(_ context.Context, s *Session, in Input) (State, error) {
	trigger := strings.TrimSpace(in.Text)
	trigger = strings.TrimPrefix(trigger, "/")
	if trigger == "" {
		return s.State, fmt.Errorf("%w: the trigger cannot be empty", ErrParse)
	}
	s.Draft.Trigger = trigger
	return StateAwaitDescription, nil
}

func (a *Authoring) onDescription(_ context.Context, s *Session, in Input) (State, error) {
	s.Draft.Description = strings.TrimSpace(in.Text)
	return StateAwaitResponseBody, nil
}

func (a *Authoring) onResponseBody(_ context.Context, s *Session, in Input) (State, error) {
	if strings.TrimSpace(in.Text) == "" {
		return s.State, fmt.Errorf("%w: the response cannot be empty", ErrParse)
	}
	s.Draft.Response = in.Text
	return StateAwaitKind, nil
}

func (a *Authoring) onKind(_ context.Context, s *Session, in Input) (State, error) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case KindCommand:
		s.Draft.IsCommand = true
	case KindText:
		s.Draft.IsCommand = false
	default:
		return s.State, fmt.Errorf("%w: answer %q or %q", ErrParse, KindCommand, KindText)
	}

	trigger := model.NormalizeTrigger(s.Draft.Trigger, s.Draft.IsCommand)
	if trigger == "" {
		return s.State, fmt.Errorf("%w: the trigger cannot be empty", ErrParse)
	}
	s.Draft.Trigger = trigger
	return StateAwaitImage, nil
}

func (a *Authoring) onImage(ctx context.Context, s *Session, in Input) (State, error) {
	if in.PhotoID != "" {
		if a.images == nil {
			return s.State, fmt.Errorf("%w: images are not supported", ErrParse)
		}
		ref, err := a.images.SaveImage(ctx, in.PhotoID)
		if err != nil {
			logger.Logger().Error("failed to save authoring image",
				zap.Int64("telegram_id", s.SenderID),
				zap.Error(err))
			return s.State, fmt.Errorf("%w: failed to download the image", ErrParse)
		}
		s.Draft.ImageURL = ref
		return StateAwaitInlineLinksDecision, nil
	}

	if isNo(in.Text) {
		s.Draft.ImageURL = ""
		return StateAwaitInlineLinksDecision, nil
	}

	return s.State, fmt.Errorf("%w: please send a photo file", ErrParse)
}

func (a *Authoring) onInlineLinksDecision(_ context.Context, s *Session, in Input) (State, error) {
	yes, err := parseDecision(in.Text)
	if err != nil {
		return s.State, err
	}
	if !yes {
		s.Draft.InlineLinks = nil
		return StateAwaitMarkupDecision, nil
	}
	return StateAwaitInlineLinksPayload, nil
}

func (a *Authoring) onInlineLinksPayload(_ context.Context, s *Session, in Input) (State, error) {
	links, err := ParseInlineLinks(in.Text)
	if err != nil {
		return s.State, err
	}
	s.Draft.InlineLinks = links
	return StateAwaitMarkupDecision, nil
}

func (a *Authoring) onMarkupDecision(_ context.Context, s *Session, in Input) (State, error) {
	yes, err := parseDecision(in.Text)
	if err != nil {
		return s.State, err
	}
	if !yes {
		s.Draft.MarkupButtons = nil
		return StateCommit, nil
	}
	return StateAwaitMarkupPayload, nil
}

func (a *Authoring) onMarkupPayload(_ context.Context, s *Session, in Input) (State, error) {
	buttons, err := ParseMarkupButtons(in.Text)
	if err != nil {
		return s.State, err
	}
	s.Draft.MarkupButtons = buttons
	return StateCommit, nil
}

func (a *Authoring) onEditTarget(ctx context.Context, s *Session, in Input) (State, error) {
	entry, err := a.registry.Find(ctx, in.Text)
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			return s.State, fmt.Errorf("%w: command not found", ErrParse)
		}
		return s.State, err
	}
	s.Draft = *entry
	return StateAwaitEditField, nil
}

func (a *Authoring) onEditField(_ context.Context, s *Session, in Input) (State, error) {
	choice := strings.TrimSpace(in.Text)
	for _, field := range []string{EditFieldDescription, EditFieldResponse, EditFieldAdminStatus} {
		if strings.EqualFold(choice, field) {
			s.EditField = field
			return StateAwaitEditValue, nil
		}
	}
	return s.State, fmt.Errorf("%w: choose %s, %s or %s", ErrParse, EditFieldDescription, EditFieldResponse, EditFieldAdminStatus)
}

func (a *Authoring) onEditValue(_ context.Context, s *Session, in Input) (State, error) {
	switch s.EditField {
	case EditFieldDescription:
		s.Draft.Description = strings.TrimSpace(in.Text)
	case EditFieldResponse:
		if strings.TrimSpace(in.Text) == "" {
			return s.State, fmt.Errorf("%w: the response cannot be empty", ErrParse)
		}
		s.Draft.Response = in.Text
	case EditFieldAdminStatus:
		yes, err := parseDecision(in.Text)
		if err != nil {
			return s.State, err
		}
		s.Draft.AdminOnly = yes
	}
	return StateCommit, nil
}

func (a *Authoring) onTarget(ctx context.Context, s *Session, in Input) (State, error) {
	switch s.Flow {
	case FlowDeleteCommand:
		entry, err := a.registry.Find(ctx, in.Text)
		if err != nil {
			if errors.Is(err, ErrCommandNotFound) {
				return s.State, fmt.Errorf("%w: command not found", ErrParse)
			}
			return s.State, err
		}
		s.Draft = *entry
	default:
		id, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
		if err != nil || id <= 0 {
			return s.State, fmt.Errorf("%w: send a numeric Telegram ID", ErrParse)
		}
		s.AdminID = id
	}
	return StateAwaitConfirmation, nil
}

func (a *Authoring) onConfirmation(_ context.Context, s *Session, in Input) (State, error) {
	yes, err := parseDecision(in.Text)
	if err != nil {
		return s.State, err
	}
	if !yes {
		return StateDone, nil
	}
	return StateCommit, nil
}

// commits

func (a *Authoring) commitAddCommand(ctx context.Context, s *Session) string {
	entry := s.Draft
	entry.ID = 0

	err := a.registry.Upsert(ctx, &entry)
	switch {
	case err == nil:
		logger.Logger().Info("command created",
			zap.Int64("telegram_id", s.SenderID),
			zap.String("trigger", entry.Trigger))
		return fmt.Sprintf("Command %s created successfully.", displayTrigger(&entry))
	case errors.Is(err, ErrDuplicateTrigger):
		return fmt.Sprintf("❌ %s already exists. Nothing was saved.", displayTrigger(&entry))
	default:
		return a.commitFailed(s, err)
	}
}

func (a *Authoring) commitEditCommand(ctx context.Context, s *Session) string {
	entry := s.Draft

	err := a.registry.Upsert(ctx, &entry)
	switch {
	case err == nil:
		logger.Logger().Info("command updated",
			zap.Int64("telegram_id", s.SenderID),
			zap.String("trigger", entry.Trigger),
			zap.String("field", s.EditField))
		return "Command updated successfully."
	case errors.Is(err, ErrCommandNotFound):
		return "Command not found."
	case errors.Is(err, ErrDuplicateTrigger):
		return fmt.Sprintf("❌ %s already exists. Nothing was saved.", displayTrigger(&entry))
	default:
		return a.commitFailed(s, err)
	}
}

func (a *Authoring) commitDeleteCommand(ctx context.Context, s *Session) string {
	err := a.registry.Delete(ctx, s.Draft.Trigger)
	switch {
	case err == nil:
		logger.Logger().Info("command deleted",
			zap.Int64("telegram_id", s.SenderID),
			zap.String("trigger", s.Draft.Trigger))
		return "Command deleted successfully."
	case errors.Is(err, ErrCommandNotFound):
		return "Command not found."
	default:
		return a.commitFailed(s, err)
	}
}

func (a *Authoring) commitAddAdmin(ctx context.Context, s *Session) string {
	err := a.admins.Add(ctx, s.AdminID)
	switch {
	case err == nil:
		logger.Logger().Info("admin added",
			zap.Int64("telegram_id", s.SenderID),
			zap.Int64("admin_id", s.AdminID))
		return "New admin added successfully."
	case errors.Is(err, ErrAdminExists):
		return "This user is already an admin."
	default:
		return a.commitFailed(s, err)
	}
}

func (a *Authoring) commitDeleteAdmin(ctx context.Context, s *Session) string {
	err := a.admins.Remove(ctx, s.AdminID)
	switch {
	case err == nil:
		logger.Logger().Info("admin deleted",
			zap.Int64("telegram_id", s.SenderID),
			zap.Int64("admin_id", s.AdminID))
		return "Admin deleted successfully."
	case errors.Is(err, ErrAdminNotFound):
		return "Admin not found."
	default:
		return a.commitFailed(s, err)
	}
}

func (a *Authoring) commitFailed(s *Session, err error) string {
	logger.Logger().Error("authoring commit failed",
		zap.Int64("telegram_id", s.SenderID),
		zap.String("trigger", s.Draft.Trigger),
		zap.Error(err))
	return "❌ Something went wrong. Nothing was saved."
}

// ParseInlineLinks reads "label,url;label,url". Empty entries are skipped;
// any other entry must have exactly two non-empty fields.
func ParseInlineLinks(raw string) ([]model.InlineLink, error) {
	var links []model.InlineLink
	for _, entry := range strings.Split(raw, ";") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %q is not in the format Text,URL", ErrParse, strings.TrimSpace(entry))
		}
		text, url := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if text == "" || url == "" {
			return nil, fmt.Errorf("%w: %q is not in the format Text,URL", ErrParse, strings.TrimSpace(entry))
		}
		links = append(links, model.InlineLink{Text: text, URL: url})
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no links given", ErrParse)
	}
	return links, nil
}

func ParseMarkupButtons(raw string) ([]string, error) {
	var buttons []string
	for _, label := range strings.Split(raw, ",") {
		if label = strings.TrimSpace(label); label != "" {
			buttons = append(buttons, label)
		}
	}
	if len(buttons) == 0 {
		return nil, fmt.Errorf("%w: no buttons given", ErrParse)
	}
	return buttons, nil
}

func parseDecision(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "skip":
		return false, nil
	}
	return false, fmt.Errorf("%w: answer yes or no", ErrParse)
}

func isNo(text string) bool {
	yes, err := parseDecision(text)
	return err == nil && !yes
}

func parseMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrParse.Error()+": ")
	if msg == "" || msg == ErrParse.Error() {
		return "❌ Invalid input."
	}
	return "❌ " + strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func displayTrigger(e *model.CommandEntry) string {
	if e.IsCommand {
		return "/" + e.Trigger
	}
	return "\"" + e.Trigger + "\""
}

// prompts

func staticPrompt(text string) func(*Session) Prompt {
	return func(*Session) Prompt {
		return Prompt{Text: text + cancelHint, RemoveKeyboard: true}
	}
}

func keyboardPrompt(text string, options ...string) func(*Session) Prompt {
	return func(*Session) Prompt {
		return Prompt{Text: text + cancelHint, Keyboard: [][]string{options}}
	}
}

func promptTrigger(*Session) Prompt {
	return Prompt{Text: "Enter the command without '/':" + cancelHint, RemoveKeyboard: true}
}

func promptEditValue(s *Session) Prompt {
	switch s.EditField {
	case EditFieldDescription:
		return staticPrompt("Enter the new description:")(s)
	case EditFieldResponse:
		return staticPrompt("Enter the new response:")(s)
	default:
		return keyboardPrompt("Is this an admin command? (yes/no)", "yes", "no")(s)
	}
}

func promptTarget(s *Session) Prompt {
	switch s.Flow {
	case FlowDeleteCommand:
		return staticPrompt("Enter the command you want to delete:")(s)
	case FlowAddAdmin:
		return staticPrompt("Enter the Telegram ID of the new admin:")(s)
	default:
		return staticPrompt("Enter the Telegram ID of the admin to delete:")(s)
	}
}

func promptConfirmation(s *Session) Prompt {
	var question string
	switch s.Flow {
	case FlowDeleteCommand:
		question = fmt.Sprintf("Are you sure you want to delete the command %s? (yes/no)", displayTrigger(&s.Draft))
	case FlowAddAdmin:
		question = fmt.Sprintf("Add %d as an admin? (yes/no)", s.AdminID)
	default:
		question = fmt.Sprintf("Remove %d from the admins? (yes/no)", s.AdminID)
	}
	return keyboardPrompt(question, "yes", "no")(s)
}
