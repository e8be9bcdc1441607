package telegram

import "sync"

// pendingRx marks chats whose next photo is a prescription upload
// rather than a dose log.
var pendingRx sync.Map // chatID -> struct{}

func setPendingPrescription(chatID int64) {
	pendingRx.Store(chatID, struct{}{})
}

// takePendingPrescription consumes the marker, if set.
func takePendingPrescription(chatID int64) bool {
	_, ok := pendingRx.LoadAndDelete(chatID)
	return ok
}
