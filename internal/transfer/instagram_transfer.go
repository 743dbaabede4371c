package transfer

type InstagramErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

type InstagramIDResponse struct {
	ID string `json:"id"`
}

type InstagramContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type InstagramMedia struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
}

type InstagramInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

type InstagramCommentsResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Username  string `json:"username"`
		LikeCount int64  `json:"like_count"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}
