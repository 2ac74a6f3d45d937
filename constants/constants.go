package constants

// Feedback shown for exactly one render after a failed input
const (
	FeedbackNameEmpty          = "The name can't be empty."
	FeedbackNameTooLong        = "The name is too long (64 characters max)."
	FeedbackDescriptionTooLong = "The description is too long (512 characters max)."
	FeedbackBorderNotNumber    = "Please send the number of days as a number."
	FeedbackBorderRange        = "The number of days must be between 1 and 3650."
	FeedbackBadEmail           = "That doesn't look like an email address."
	FeedbackPasswordSpaces     = "The password can't contain spaces."
	FeedbackPasswordLength     = "The password must be 6 to 64 characters long."
	FeedbackPasswordMismatch   = "The passwords don't match, please start over."
	FeedbackWrongPassword      = "Wrong password, try again."
	FeedbackBadTime            = "Please send the time as HH:MM, for example 20:00."
	FeedbackDraftIncomplete    = "The target is incomplete, please fill it in again."
	FeedbackCodeShape          = "The code is 6 digits."
	FeedbackCodeWrong          = "Wrong code, try again."
	FeedbackCodeExpired        = "The code has expired, please enter your email again."
	FeedbackPendingExpired     = "That took too long, please start over."
	FeedbackMailFailed         = "We couldn't send the code, please try again."
	FeedbackNotFound           = "That item no longer exists."
	FeedbackTextNotExpected    = "Please use the buttons below."
	FeedbackTargetCreated      = "Target created!"
	FeedbackTargetDeleted      = "Target deleted."
	FeedbackPasswordSaved      = "Password saved."
	FeedbackEmailSaved         = "Email verified and saved."
	FeedbackTimeSaved          = "Reminder time saved."
)

const (
	TextRoot          = "Welcome to the habit tracker! Sign in to manage your targets."
	TextPassword      = "This account is protected. Send your password."
	TextSessionClosed = "Your session was closed. Sign in again to continue."
	TextError         = "Something went wrong on our end. Your progress is kept, try again in a moment."
	TextReminder      = "Don't forget to mark today's targets as done!"
	TextCreateName    = "New target (1/3). Send the name of the target."
	TextCreateDesc    = "New target (2/3). Send a short description, or - to skip."
	TextCreateBorder  = "New target (3/3). How many days should this target run?"
	TextTime          = "Send the time for daily reminders as HH:MM."
	TextPasswordNew   = "Send the new password."
	TextPasswordAgain = "Send the new password again."
	TextEmail         = "Send your email address, we'll mail you a code."
	TextEmailVerify   = "Send the 6 digit code we mailed to %s."
)

const (
	LabelSignIn        = "Sign in"
	LabelBack          = "Back"
	LabelCancel        = "Cancel"
	LabelTargets       = "My targets"
	LabelSettings      = "Settings"
	LabelSignOut       = "Sign out"
	LabelNewTarget     = "New target"
	LabelMarkDone      = "Mark done today"
	LabelUnmarkDone    = "Unmark today"
	LabelDelete        = "Delete"
	LabelConfirmDelete = "Yes, delete"
	LabelCreate        = "Create"
	LabelRetry         = "Retry"
	LabelNotifOn       = "Turn reminders on"
	LabelNotifOff      = "Turn reminders off"
	LabelSetTime       = "Reminder time"
	LabelSetPassword   = "Set password"
	LabelSetEmail      = "Set email"
	LabelResend        = "Send a new code"
)
