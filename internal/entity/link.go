package entity

import "time"

// Link is a shortened URL record.
type Link struct {
	IDString       string    `json:"idString"`
	Path           string    `json:"path"`
	Title          string    `json:"title,omitempty"`
	OriginalURL    string    `json:"originalURL"`
	AndroidURL     string    `json:"androidURL,omitempty"`
	IPhoneURL      string    `json:"iphoneURL,omitempty"`
	ShortURL       string    `json:"shortURL"`
	SecureShortURL string    `json:"secureShortURL"`
	Archived       bool      `json:"archived"`
	DomainID       int64     `json:"DomainId"`
	OwnerID        int64     `json:"OwnerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// LinkCreateOptions is the body of a create link call.
type LinkCreateOptions struct {
	OriginalURL     string `json:"originalURL"`
	Domain          string `json:"domain"`
	AllowDuplicates bool   `json:"allowDuplicates,omitempty"`
	Path            string `json:"path,omitempty"`
	Title           string `json:"title,omitempty"`
	IPhoneURL       string `json:"iphoneURL,omitempty"`
	AndroidURL      string `json:"androidURL,omitempty"`
}

// LinkUpdateOptions is the body of an update link call.
// Every field is sent, so emptying a field clears it upstream.
type LinkUpdateOptions struct {
	Path        string `json:"path"`
	OriginalURL string `json:"originalURL"`
	Title       string `json:"title"`
	AndroidURL  string `json:"androidURL"`
	IPhoneURL   string `json:"iphoneURL"`
}

// LinkPage is one page of a link listing.
type LinkPage struct {
	Links         []Link `json:"links"`
	Count         int    `json:"count"`
	NextPageToken string `json:"nextPageToken"`
}

// QROptions controls QR code rendering.
type QROptions struct {
	Type            string `json:"type"`
	BackgroundColor string `json:"backgroundColor"`
	Color           string `json:"color"`
}

// DefaultQROptions matches the dark theme of the app.
var DefaultQROptions = QROptions{
	Type:            "svg",
	BackgroundColor: "1a1a1a",
	Color:           "ffffff",
}

// QRCode is a rendered QR code image.
type QRCode struct {
	ContentType string
	Data        []byte
}
