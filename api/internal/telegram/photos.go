package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"med-match/api/internal/pipeline"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	// Telegram sends several sizes; the last one is the largest.
	ph := msg.Photo[len(msg.Photo)-1]
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.SendError(cid, err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	img, err := download(url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	asPrescription := takePendingPrescription(cid)
	if asPrescription {
		r.send(cid, "Reading your prescription…")
	} else {
		r.send(cid, "Checking your medication…")
	}

	go r.process(cid, img, asPrescription)
}

func (r *Router) process(cid int64, img []byte, asPrescription bool) {
	ctx := context.Background()
	eng := r.EngManager.Get(cid)

	var res pipeline.Result
	if asPrescription {
		res = r.Pipe.UploadPrescription(ctx, eng, img)
	} else {
		res = r.Pipe.LogDose(ctx, eng, img)
	}
	r.sendResult(cid, res, asPrescription)
}

func (r *Router) sendResult(cid int64, res pipeline.Result, asPrescription bool) {
	if !res.Success {
		switch res.ErrorType {
		case pipeline.NotPrescribed, pipeline.AlreadyTaken:
			r.send(cid, "Dose not logged: "+res.Error)
		case pipeline.MalformedExtraction:
			r.send(cid, "I couldn't read that photo ("+res.Error+"). Try a sharper picture.")
		default:
			r.send(cid, "Something went wrong: "+res.Error)
		}
		return
	}
	if asPrescription {
		if up, ok := res.Data.(pipeline.PrescriptionUpload); ok {
			r.send(cid, fmt.Sprintf("Stored %d medication(s) from your prescription.", up.Count))
			return
		}
		r.send(cid, "Prescription stored.")
		return
	}
	r.send(cid, "Dose logged. Stay on schedule!")
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
