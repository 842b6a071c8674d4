package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-dashboard/internal/config"
	"task-dashboard/internal/export"
	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
	"task-dashboard/internal/notify"
	"task-dashboard/internal/query"
)

const (
	menuLabelTasks         = "📋 Tasks"
	menuLabelNotifications = "🔔 Notifications"
	menuLabelClear         = "🧹 Clear filters"
	menuLabelHelp          = "ℹ️ Help"
)

type TaskQuerier interface {
	Query(ctx context.Context, f query.FilterState) (query.Result, error)
	Matching(ctx context.Context, f query.FilterState) ([]model.Task, error)
}

type CategoryLister interface {
	Categories(ctx context.Context) ([]model.Category, error)
}

type Notifications interface {
	Current() (notify.Buckets, time.Time)
	Digest(b notify.Buckets, now time.Time) string
}

type SubscriberStore interface {
	Subscribe(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Subscriber, error)
	Unsubscribe(ctx context.Context, telegramID int64) error
	ListActive(ctx context.Context) ([]model.Subscriber, error)
}

// messenger is the sending half of *tgbotapi.BotAPI.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram front end of the dashboard.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           messenger
	tasks         TaskQuerier
	categories    CategoryLister
	notifications Notifications
	subscribers   SubscriberStore
	sessions      *sessions
	loc           *time.Location
}

func New(token string, tasks TaskQuerier, categories CategoryLister, notifications Notifications, subscribers SubscriberStore, cfg config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.InfoLog(context.Background(), "bot authorized on account %s", api.Self.UserName)

	b := newBot(api, tasks, categories, notifications, subscribers, cfg.DefaultPageSize, cfg.Timezone)
	b.api = api
	return b, nil
}

func newBot(out messenger, tasks TaskQuerier, categories CategoryLister, notifications Notifications, subscribers SubscriberStore, pageSize int, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		out:           out,
		tasks:         tasks,
		categories:    categories,
		notifications: notifications,
		subscribers:   subscribers,
		sessions:      newSessions(pageSize),
		loc:           loc,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api is not initialized")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.InfoLog(ctx, "start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorLog(ctx, "panic while handling update %d: %v", update.UpdateID, r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			logger.ErrorLog(ctx, "handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			logger.ErrorLog(ctx, "handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		logger.InfoLog(ctx, "command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Try /tasks, or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "tasks":
		return b.sendTaskPage(ctx, chatID, b.sessions.get(chatID))
	case "priority":
		return b.handlePriority(ctx, chatID, args)
	case "category":
		return b.handleCategory(ctx, chatID, args)
	case "categories":
		return b.handleCategories(ctx, chatID)
	case "search":
		f := b.sessions.updateFilter(chatID, func(f *query.FilterState) { f.Title = parseTerm(args) })
		return b.sendTaskPage(ctx, chatID, f)
	case "subcat":
		f := b.sessions.updateFilter(chatID, func(f *query.FilterState) { f.SubCategory = parseTerm(args) })
		return b.sendTaskPage(ctx, chatID, f)
	case "sort":
		return b.handleSort(ctx, chatID, args)
	case "clear":
		return b.sendTaskPage(ctx, chatID, b.sessions.reset(chatID))
	case "export":
		return b.handleExport(ctx, chatID)
	case "notifications":
		return b.handleNotifications(chatID)
	case "subscribe":
		return b.handleSubscribe(ctx, msg)
	case "unsubscribe":
		return b.handleUnsubscribe(ctx, msg)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I show the team's tasks and remind you what is due.</b>\n\n"+
			"• /tasks — the task table\n"+
			"• /notifications — what is past due and coming up\n"+
			"• /subscribe — get the digest on a schedule\n"+
			"• /help — every command",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /tasks — show the current page\n" +
		"• /priority &lt;list|all&gt; — e.g. /priority high,urgent\n" +
		"• /category &lt;name|all&gt; — limit to one category\n" +
		"• /categories — list categories\n" +
		"• /search &lt;text|#id&gt; — title and description search\n" +
		"• /subcat &lt;text|#id&gt; — subcategory search\n" +
		"• /sort &lt;title|description|status|priority|deadline&gt; [asc|desc]\n" +
		"• /clear — reset filters and sorting\n" +
		"• /export — the filtered table as an Excel file\n" +
		"• /notifications — the current digest\n" +
		"• /subscribe, /unsubscribe — scheduled digests"
	return b.sendText(chatID, text)
}

func (b *Bot) handlePriority(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Give a list of priorities, e.g. /priority high,urgent, or /priority all.")
	}
	f := b.sessions.updateFilter(chatID, func(f *query.FilterState) { f.Priorities = query.ParsePriorities(args) })
	return b.sendTaskPage(ctx, chatID, f)
}

func (b *Bot) handleCategory(ctx context.Context, chatID int64, args string) error {
	if args == "" || strings.EqualFold(args, "all") {
		f := b.sessions.updateFilter(chatID, func(f *query.FilterState) {
			f.CategoryID = ""
			f.SubCategoryID = ""
		})
		return b.sendTaskPage(ctx, chatID, f)
	}

	categories, err := b.categories.Categories(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load categories: %s", escape(err.Error())))
	}
	var found *model.Category
	for i := range categories {
		c := &categories[i]
		if c.ID.String() == args || strings.EqualFold(strings.TrimSpace(c.Name), args) {
			found = c
			break
		}
	}
	if found == nil {
		return b.sendText(chatID, fmt.Sprintf("No category called “%s”. See /categories.", escape(args)))
	}

	f := b.sessions.updateFilter(chatID, func(f *query.FilterState) {
		f.CategoryID = found.ID
		f.SubCategoryID = ""
	})
	return b.sendTaskPage(ctx, chatID, f)
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64) error {
	categories, err := b.categories.Categories(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load categories: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(chatID, "No categories yet.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s <code>%s</code>\n", escape(strings.TrimSpace(cat.Name)), escape(cat.ID.String())))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleSort(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 || len(fields) > 2 {
		return b.sendText(chatID, "Usage: /sort &lt;field&gt; [asc|desc]")
	}
	key := query.SortKey(fields[0])
	dir := query.Asc
	if len(fields) == 2 {
		dir = query.Direction(fields[1])
	}
	candidate := query.FilterState{SortKey: key, Direction: dir, Page: 1, PageSize: 1}
	if err := candidate.Validate(); err != nil {
		return b.sendText(chatID, "Sort by title, description, status, priority or deadline, optionally followed by asc or desc.")
	}

	f := b.sessions.updateFilter(chatID, func(f *query.FilterState) {
		f.SortKey = key
		f.Direction = dir
	})
	return b.sendTaskPage(ctx, chatID, f)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.Matching(ctx, b.sessions.get(chatID))
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not export: %s", escape(err.Error())))
	}
	var buf bytes.Buffer
	if err := export.WriteTasks(&buf, tasks); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not export: %s", escape(err.Error())))
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("tasks_%s.xlsx", time.Now().In(b.loc).Format("20060102_1504")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("%d tasks", len(tasks))
	_, err = b.out.Send(doc)
	return err
}

func (b *Bot) handleNotifications(chatID int64) error {
	buckets, at := b.notifications.Current()
	if at.IsZero() {
		return b.sendText(chatID, "Notifications are not ready yet, the first sync is still running.")
	}
	return b.sendText(chatID, b.notifications.Digest(buckets, at.In(b.loc)))
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.subscribers.Subscribe(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "🔔 Subscribed. The digest will arrive on schedule; /unsubscribe stops it.")
}

func (b *Bot) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.subscribers.Unsubscribe(ctx, msg.From.ID); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "🔕 Unsubscribed.")
}

// SendDigests sends the current digest to every active subscriber.
func (b *Bot) SendDigests(ctx context.Context) error {
	subscribers, err := b.subscribers.ListActive(ctx)
	if err != nil {
		return err
	}
	buckets, at := b.notifications.Current()
	if at.IsZero() {
		logger.WarnLog(ctx, "skip digest: notifications not computed yet")
		return nil
	}
	text := b.notifications.Digest(buckets, at.In(b.loc))

	var sent int
	for _, sub := range subscribers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(sub.TelegramID, text); err != nil {
			logger.ErrorLog(ctx, "send digest to %d: %v", sub.TelegramID, err)
			continue
		}
		sent++
	}
	logger.InfoLog(ctx, "digest sent to %d of %d subscribers", sent, len(subscribers))
	return nil
}

func (b *Bot) sendTaskPage(ctx context.Context, chatID int64, f query.FilterState) error {
	res, err := b.tasks.Query(ctx, f)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	msg := tgbotapi.NewMessage(chatID, renderPage(res, f, time.Now().In(b.loc)))
	msg.ParseMode = tgbotapi.ModeHTML
	if kb := pageKeyboard(res); kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.WarnLog(ctx, "callback ack: %v", err)
	}
	if !strings.HasPrefix(cb.Data, cbPagePrefix) {
		return nil
	}

	page, err := parsePage(cb.Data)
	if err != nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	f := b.sessions.setPage(chatID, page)
	res, err := b.tasks.Query(ctx, f)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	text := renderPage(res, f, time.Now().In(b.loc))
	var edit tgbotapi.EditMessageTextConfig
	if kb := pageKeyboard(res); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = b.out.Send(edit)
	return err
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskPage(ctx, chatID, b.sessions.get(chatID))
	case strings.ToLower(menuLabelNotifications):
		return true, b.handleNotifications(chatID)
	case strings.ToLower(menuLabelClear):
		return true, b.sendTaskPage(ctx, chatID, b.sessions.reset(chatID))
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

// parseTerm reads "#id" as a picked record and anything else as free text.
func parseTerm(args string) query.SearchTerm {
	if id, ok := strings.CutPrefix(args, "#"); ok {
		return query.Resolved(model.ID(strings.TrimSpace(id)))
	}
	return query.Text(args)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelNotifications),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelClear),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}
