package domain

// PageRequest is one scheduled page attempt against a single device. The
// delay is relative to ticket-open time, not to the previous page, so every
// request is independently schedulable by the paging queue.
type PageRequest struct {
	TicketID    string `json:"ticket_id"`
	UserID      string `json:"user_id"`
	Device      Device `json:"device"`
	DelayMillis int64  `json:"delay_millis"`
	Title       string `json:"title"`
}

// PageHandle ties a queued page back to its originating ticket.
type PageHandle struct {
	PageID   string `json:"page_id"`
	TicketID string `json:"ticket_id"`
}
