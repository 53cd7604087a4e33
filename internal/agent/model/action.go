package model

// ActionResult is the uniform outcome of a side-effecting tool action.
// Message is always displayable so it can be fed straight back into the
// conversation as the tool observation, success or not.
type ActionResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Succeed builds a successful result.
func Succeed(message string) ActionResult {
	return ActionResult{OK: true, Message: message}
}

// Fail builds a failed-but-displayable result.
func Fail(message string) ActionResult {
	return ActionResult{OK: false, Message: message}
}
