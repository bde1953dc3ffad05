package models

// Intent is the classified purpose of an inbound GitHub webhook event.
type Intent string

const (
	IntentExplainByLabel   Intent = "explain_by_label"
	IntentExplainByComment Intent = "explain_by_comment"
	IntentRepoAdded        Intent = "repo_added"
	IntentRepoRemoved      Intent = "repo_removed"
	IntentCommentByBot     Intent = "comment_by_bot"
	IntentNotHandled       Intent = "not_handled"
	IntentBadRequest       Intent = "bad_request"
)

// ChangedFile is one file from a pull request diff as returned by the GitHub
// "list pull request files" endpoint. Patch is empty for binary files and for
// removed files.
type ChangedFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Changes  int    `json:"changes"`
	Patch    string `json:"patch,omitempty"`
}

// BatchFile pairs a filename with the patch text sent to the model.
type BatchFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// FileBatch groups files whose combined patch size fits one prompt budget.
type FileBatch []BatchFile

// RequestParams identifies the pull request an analysis event points at.
type RequestParams struct {
	InstallationID int64
	RepoOwner      string
	RepoName       string
	PullNumber     int
}
