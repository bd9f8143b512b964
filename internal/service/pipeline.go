package service

// State - состояние конвейера сборки записи.
type State string

const (
	StateExtracting        State = "EXTRACTING"
	StateExtracted         State = "EXTRACTED"
	StatePersisting        State = "PERSISTING"
	StatePersisted         State = "PERSISTED"
	StateRejectedDuplicate State = "REJECTED_DUPLICATE"
	StateNotifying         State = "NOTIFYING"
	StateNotified          State = "NOTIFIED"
	StateNotifySkipped     State = "NOTIFY_SKIPPED"
	StateNotifyFailed      State = "NOTIFY_FAILED"
)

// BindState - состояние привязки вложения.
type BindState string

const (
	BindReceiving   BindState = "RECEIVING"
	BindBound       BindState = "BOUND"
	BindNotFound    BindState = "NOT_FOUND"
	BindInvalidSlot BindState = "INVALID_SLOT"
)

// trace копит пройденные состояния; последнее - текущее.
type trace []State

func (t *trace) to(s State) {
	*t = append(*t, s)
}

func (t trace) current() State {
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}
