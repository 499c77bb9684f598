// Package screen lists the events the main screen sends to the coordinator
// and the one-shot effects the coordinator asks the screen to perform.
package screen

import (
	appevents "github.com/rescp17/nearbyExchanger/internal/app_events"
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

// --- Events (from TUI to coordinator) ---

type ActivityStarted struct {
	appevents.Event
}

type RoleSelected struct {
	appevents.Event
	Role exchange.Role
}

type AddDirectoryRequested struct {
	appevents.Event
}

type RemoveDirectoryRequested struct {
	appevents.Event
	Dir string
}

type DirectorySelected struct {
	appevents.Event
	Dir string
}

type SendFileClicked struct {
	appevents.Event
}

type SendFolderClicked struct {
	appevents.Event
}

type DisconnectClicked struct {
	appevents.Event
}

type DeviceClicked struct {
	appevents.Event
	Device device.RemoteDevice
}

type PermissionsResult struct {
	appevents.Event
	Granted bool
}

type DirectoryAccessChecked struct {
	appevents.Event
	Dir       string
	HasAccess bool
}

// ServiceStarted is sent once the session host runs an engine for Role.
type ServiceStarted struct {
	appevents.Event
	Role      exchange.Role
	Exchanger exchange.Exchanger
}

type ServiceStopped struct {
	appevents.Event
}

type FilePicked struct {
	appevents.Event
	Path string
}

type DirectoryPicked struct {
	appevents.Event
	Path string
	Name string
}

type PickerCancelled struct {
	appevents.Event
}

// --- Effects (from coordinator to TUI) ---

type CheckDirectoryAccess struct {
	appevents.UIMessage
	Dir string
}

type RequestPermissions struct {
	appevents.UIMessage
	Permissions []platform.Permission
}

type StartForegroundService struct {
	appevents.UIMessage
	Role exchange.Role
}

type StopForegroundService struct {
	appevents.UIMessage
}

type ShowDisconnectedAlert struct {
	appevents.UIMessage
	Device device.RemoteDevice
}

type ShowMessage struct {
	appevents.UIMessage
	Text string
}

type PickFile struct {
	appevents.UIMessage
	ReadOnly bool
}

type PickDirectory struct {
	appevents.UIMessage
	ReadOnly bool
}

// TransferProgress forwards a payload status change of the running session.
type TransferProgress struct {
	appevents.UIMessage
	Status transfer.TransferStatus
}

var (
	_ appevents.AppEvent = (*ActivityStarted)(nil)
	_ appevents.AppEvent = (*RoleSelected)(nil)
	_ appevents.AppEvent = (*AddDirectoryRequested)(nil)
	_ appevents.AppEvent = (*RemoveDirectoryRequested)(nil)
	_ appevents.AppEvent = (*DirectorySelected)(nil)
	_ appevents.AppEvent = (*SendFileClicked)(nil)
	_ appevents.AppEvent = (*SendFolderClicked)(nil)
	_ appevents.AppEvent = (*DisconnectClicked)(nil)
	_ appevents.AppEvent = (*DeviceClicked)(nil)
	_ appevents.AppEvent = (*PermissionsResult)(nil)
	_ appevents.AppEvent = (*DirectoryAccessChecked)(nil)
	_ appevents.AppEvent = (*ServiceStarted)(nil)
	_ appevents.AppEvent = (*ServiceStopped)(nil)
	_ appevents.AppEvent = (*FilePicked)(nil)
	_ appevents.AppEvent = (*DirectoryPicked)(nil)
	_ appevents.AppEvent = (*PickerCancelled)(nil)

	_ appevents.AppUIMessage = (*CheckDirectoryAccess)(nil)
	_ appevents.AppUIMessage = (*RequestPermissions)(nil)
	_ appevents.AppUIMessage = (*StartForegroundService)(nil)
	_ appevents.AppUIMessage = (*StopForegroundService)(nil)
	_ appevents.AppUIMessage = (*ShowDisconnectedAlert)(nil)
	_ appevents.AppUIMessage = (*ShowMessage)(nil)
	_ appevents.AppUIMessage = (*PickFile)(nil)
	_ appevents.AppUIMessage = (*PickDirectory)(nil)
	_ appevents.AppUIMessage = (*TransferProgress)(nil)
)
