package leetcode

// problemListResponse is the payload of GET /api/problems/all/.
type problemListResponse struct {
	UserName        string           `json:"user_name"`
	NumSolved       int              `json:"num_solved"`
	NumTotal        int              `json:"num_total"`
	StatStatusPairs []statStatusPair `json:"stat_status_pairs"`
}

type statStatusPair struct {
	Stat     problemStat `json:"stat"`
	Status   *string     `json:"status"`
	PaidOnly bool        `json:"paid_only"`
}

type problemStat struct {
	QuestionID         int64  `json:"question_id"`
	FrontendQuestionID int64  `json:"frontend_question_id"`
	Title              string `json:"question__title"`
	TitleSlug          string `json:"question__title_slug"`
}

const listStatusAccepted = "ac"

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type graphQLResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type questionDetailData struct {
	Question *questionDetail `json:"question"`
}

type questionDetail struct {
	QuestionID         string     `json:"questionId"`
	QuestionFrontendID string     `json:"questionFrontendId"`
	QuestionTitle      string     `json:"questionTitle"`
	QuestionTitleSlug  string     `json:"questionTitleSlug"`
	Content            *string    `json:"content"`
	Difficulty         string     `json:"difficulty"`
	TopicTags          []topicTag `json:"topicTags"`
}

type topicTag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type questionNoteData struct {
	Question *questionNote `json:"question"`
}

type questionNote struct {
	QuestionID string        `json:"questionId"`
	Solution   *solutionNote `json:"solution"`
}

type solutionNote struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	CanSeeDetail bool   `json:"canSeeDetail"`
	PaidOnly     bool   `json:"paidOnly"`
}

type submissionListData struct {
	SubmissionList *submissionList `json:"submissionList"`
}

type submissionList struct {
	LastKey     *string          `json:"lastKey"`
	HasNext     bool             `json:"hasNext"`
	Submissions []submissionItem `json:"submissions"`
}

type submissionItem struct {
	ID            string `json:"id"`
	StatusDisplay string `json:"statusDisplay"`
	Lang          string `json:"lang"`
	Timestamp     string `json:"timestamp"`
	IsPending     string `json:"isPending"`
}

type submissionDetailsData struct {
	SubmissionDetails *submissionDetails `json:"submissionDetails"`
}

type submissionDetails struct {
	Code      *string `json:"code"`
	Timestamp int64   `json:"timestamp"`
	Lang      struct {
		Name        string `json:"name"`
		VerboseName string `json:"verboseName"`
	} `json:"lang"`
}
