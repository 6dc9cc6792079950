package whatsapp

// Webhook payload types for the WhatsApp Business Cloud API
// (entries -> changes -> value -> messages/statuses).

type Webhook struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

type Profile struct {
	Name string `json:"name"`
}

// Message is a single inbound message. The sender key arrives as "from" and
// is renamed to "from_" by RenameReservedKeys before decoding; the rename is
// part of the wire contract and preserved here.
type Message struct {
	From      string           `json:"from_"`
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Type      string           `json:"type"`
	Text      *TextMessage     `json:"text,omitempty"`
	Image     *MediaMessage    `json:"image,omitempty"`
	Audio     *MediaMessage    `json:"audio,omitempty"`
	Document  *DocumentMessage `json:"document,omitempty"`
}

type TextMessage struct {
	Body string `json:"body"`
}

// MediaMessage is the media reference embedded in image and audio messages:
// an opaque content id plus checksum and MIME type. The actual bytes are
// fetched just-in-time through the media-info endpoint.
type MediaMessage struct {
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	ID       string `json:"id"`
	Caption  string `json:"caption,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

type DocumentMessage struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	ID       string `json:"id"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Media is the media-info endpoint response. The URL is signed and
// short-lived; it must be used for exactly one fetch and never cached.
type Media struct {
	MessagingProduct string `json:"messaging_product"`
	URL              string `json:"url"`
	MimeType         string `json:"mime_type"`
	SHA256           string `json:"sha256"`
	FileSize         int64  `json:"file_size"`
	ID               string `json:"id"`
}

// MediaRef returns the media reference for the message type, or nil for
// text and unsupported types.
func (m *Message) MediaRef() *MediaMessage {
	switch m.Type {
	case "image":
		return m.Image
	case "audio":
		return m.Audio
	}
	return nil
}

// MimeType returns the payload MIME type for media messages, empty for text.
func (m *Message) MimeType() string {
	if ref := m.MediaRef(); ref != nil {
		return ref.MimeType
	}
	if m.Document != nil {
		return m.Document.MimeType
	}
	return ""
}
