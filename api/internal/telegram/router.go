package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"med-match/api/internal/dashboard"
	"med-match/api/internal/ocr"
	"med-match/api/internal/pipeline"
	"med-match/api/internal/store"
)

type Router struct {
	Bot        *tgbotapi.BotAPI
	EngManager *ocr.Manager
	Engines    *ocr.Engines
	Pipe       *pipeline.Pipeline
	Dash       *dashboard.Calculator
	History    *store.HistoryRepo
	Logger     *zap.Logger
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(upd)
		return
	}
	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
		return
	}
	r.send(cid, "Send a photo of your medication, or /help for commands.")
}

func (r *Router) handleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of your medication to log a dose.\n"+
			"Commands:\n"+
			"/rx — treat the next photo as a prescription upload\n"+
			"/status — dashboard counts and compliance rate\n"+
			"/history — your dose log\n"+
			"/check <medicine> — interaction check against your prescriptions\n"+
			"/engine [gemini|gpt] — show or switch the model engine\n"+
			"/health")
	case "health":
		r.send(cid, "OK")
	case "rx":
		setPendingPrescription(cid)
		r.send(cid, "Next photo will be stored as a prescription.")
	case "status":
		r.sendStatus(cid)
	case "history":
		r.sendHistory(cid)
	case "check":
		r.runInteractionCheck(cid, strings.TrimSpace(upd.Message.CommandArguments()))
	case "engine":
		r.handleEngineCommand(cid, strings.TrimSpace(upd.Message.CommandArguments()))
	default:
		r.send(cid, "Unknown command, see /help")
	}
}

func (r *Router) sendStatus(cid int64) {
	snap, err := r.Dash.Snapshot(context.Background(), r.Pipe.UserID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	r.send(cid, fmt.Sprintf(
		"Active prescriptions: %d\nMedicines taken today: %d\nCompliance rate: %.0f%%",
		snap.ActivePrescriptions, snap.TakenToday, snap.ComplianceRate*100))
}

func (r *Router) sendHistory(cid int64) {
	events, err := r.History.ListByUser(context.Background(), r.Pipe.UserID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	if len(events) == 0 {
		r.send(cid, "No doses logged yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Your dose log:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "%s %s — %s %s\n", ev.Day, ev.TimeOfDay, ev.MedicineName, ev.MedicineDosage)
	}
	r.send(cid, b.String())
}

func (r *Router) runInteractionCheck(cid int64, medicine string) {
	if medicine == "" {
		r.send(cid, "Usage: /check <medicine name>")
		return
	}
	eng := r.EngManager.Get(cid)
	conflicts, err := r.Pipe.CheckInteractions(context.Background(), eng, medicine)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	if len(conflicts) == 0 {
		r.send(cid, fmt.Sprintf("No known conflicts between %s and your prescriptions.", medicine))
		return
	}
	r.send(cid, fmt.Sprintf("WARNING: %s should not be taken with %s.",
		strings.Join(conflicts, ", "), medicine))
}

func (r *Router) handleEngineCommand(cid int64, arg string) {
	if arg == "" {
		r.send(cid, "Current engine: "+r.EngManager.Get(cid).Name()+
			"\nUsage: /engine gemini | /engine gpt")
		return
	}
	eng, err := r.Engines.GetEngine(arg)
	if err != nil {
		r.send(cid, "Unknown engine. Available: gemini | gpt")
		return
	}
	r.EngManager.Set(cid, eng)
	r.send(cid, "Switched to: "+eng.Name()+" ("+eng.GetModel()+")")
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Logger.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Something went wrong: %v", err))
}
