package locale

// Message keys. Every user-facing string goes through one of these.
const (
	// menu
	ButtonFinish = "ButtonFinish"
	ButtonClear  = "ButtonClear"
	ButtonCancel = "ButtonCancel"

	// conversation notices
	EmptyValue       = "EmptyValue"
	NoPhoto          = "NoPhoto"
	DownloadFailed   = "DownloadFailed"
	PromptExpired    = "PromptExpired"
	UseMenu          = "UseMenu"
	DocumentCaption  = "DocumentCaption"
	BroadcastCaption = "BroadcastCaption"

	// gate and framework
	AccessDenied      = "AccessDenied"
	RateLimited       = "RateLimited"
	UnsupportedAction = "UnsupportedAction"

	// admin commands
	UsageAdd    = "UsageAdd"
	UsageRemove = "UsageRemove"
	BadUserID   = "BadUserID"
	UserAdded   = "UserAdded"
	UserRemoved = "UserRemoved"
	ChangeInfo  = "ChangeInfo"
	ListAdmins  = "ListAdmins"
	ListAllowed = "ListAllowed"
	ListNone    = "ListNone"
	ACLFailed   = "ACLFailed"

	// command menu descriptions
	CommandStart  = "CommandStart"
	CommandAdd    = "CommandAdd"
	CommandRemove = "CommandRemove"
	CommandList   = "CommandList"
)

// Keys lists every message key; both bundles must define all of them.
var Keys = []string{
	ButtonFinish, ButtonClear, ButtonCancel,
	EmptyValue, NoPhoto, DownloadFailed, PromptExpired, UseMenu, DocumentCaption, BroadcastCaption,
	AccessDenied, RateLimited, UnsupportedAction,
	UsageAdd, UsageRemove, BadUserID, UserAdded, UserRemoved, ChangeInfo, ListAdmins, ListAllowed, ListNone, ACLFailed,
	CommandStart, CommandAdd, CommandRemove, CommandList,
}
