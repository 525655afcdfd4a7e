package orchestrator

// User-facing replies for the terminal states that do not carry their own
// text.
const (
	MsgFeatureDisabled = "Asking questions about your school's data is not enabled for your school. Please contact your administrator to turn it on."
	MsgUnsafeStatement = "I can't process that request. Please try rephrasing your question."
	MsgExecutionFailed = "Sorry, there was an error fetching your data. Please try again later."
	MsgUnavailable     = "Sorry, I can't answer questions about your data right now. Please try again in a few minutes."
	MsgNoRows          = "I didn't find any records matching your question."
)
