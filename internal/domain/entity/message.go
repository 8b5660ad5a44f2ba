package entity

// StatusUpdateMessage is the inbound message from the job-status queue.
type StatusUpdateMessage struct {
	VideoID       string `json:"videoId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}
