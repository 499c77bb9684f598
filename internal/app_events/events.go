package appevents

// AppEvent is a marker interface for events sent from the TUI to the coordinator.
// Only types embedding Event satisfy it.
type AppEvent interface {
	isAppEvent()
}

// Event is embedded in event types to satisfy AppEvent.
type Event struct{}

func (Event) isAppEvent() {}

// AppUIMessage is a marker interface for messages sent from the coordinator to the TUI.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage is embedded in message types to satisfy AppUIMessage.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// AppErrorMsg reports a coordinator failure to the TUI.
type AppErrorMsg struct {
	UIMessage
	Err error
}
