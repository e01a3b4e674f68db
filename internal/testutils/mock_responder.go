package testutils

import "fmt"

// SentFile captures one upload performed through MockResponder.
type SentFile struct {
	Kind    string
	Path    string
	FileID  string
	Caption string
}

// MockResponder implements bot.Responder for testing. Every send is
// recorded; per-channel error fields make individual operations fail.
type MockResponder struct {
	Texts    []string
	Edits    map[int]string
	Deleted  []int
	Files    []SentFile
	ByID     []SentFile
	DocsURLs []string

	nextMessageID int

	SendTextError error
	EditTextError error
	FileError     error
	ByIDError     error
	DocumentError error

	// FileIDFor maps an uploaded path to the file handle the fake server
	// hands back. Unlisted paths get a generated handle.
	FileIDFor map[string]string
}

func NewMockResponder() *MockResponder {
	return &MockResponder{Edits: make(map[int]string)}
}

func (m *MockResponder) SendText(text string) (int, error) {
	if m.SendTextError != nil {
		return 0, m.SendTextError
	}
	m.Texts = append(m.Texts, text)
	m.nextMessageID++
	return m.nextMessageID, nil
}

func (m *MockResponder) EditText(messageID int, text string) error {
	if m.EditTextError != nil {
		return m.EditTextError
	}
	m.Edits[messageID] = text
	return nil
}

func (m *MockResponder) DeleteMessage(messageID int) {
	m.Deleted = append(m.Deleted, messageID)
}

func (m *MockResponder) sendFile(kind, path, caption string) (string, error) {
	if m.FileError != nil {
		return "", m.FileError
	}
	fileID := m.FileIDFor[path]
	if fileID == "" {
		fileID = fmt.Sprintf("%s-handle-%d", kind, len(m.Files))
	}
	m.Files = append(m.Files, SentFile{Kind: kind, Path: path, FileID: fileID, Caption: caption})
	return fileID, nil
}

func (m *MockResponder) sendByID(kind, fileID, caption string) error {
	if m.ByIDError != nil {
		return m.ByIDError
	}
	m.ByID = append(m.ByID, SentFile{Kind: kind, FileID: fileID, Caption: caption})
	return nil
}

func (m *MockResponder) SendVideoFile(path, caption string) (string, error) {
	return m.sendFile("video", path, caption)
}

func (m *MockResponder) SendVideoByID(fileID, caption string) error {
	return m.sendByID("video", fileID, caption)
}

func (m *MockResponder) SendPhotoFile(path, caption string) (string, error) {
	return m.sendFile("photo", path, caption)
}

func (m *MockResponder) SendPhotoByID(fileID, caption string) error {
	return m.sendByID("photo", fileID, caption)
}

func (m *MockResponder) SendAudioFile(path, caption string) (string, error) {
	return m.sendFile("audio", path, caption)
}

func (m *MockResponder) SendAudioByID(fileID, caption string) error {
	return m.sendByID("audio", fileID, caption)
}

func (m *MockResponder) SendDocumentFile(path, caption string) (string, error) {
	if m.DocumentError != nil {
		return "", m.DocumentError
	}
	m.Files = append(m.Files, SentFile{Kind: "document", Path: path, Caption: caption})
	return "", nil
}

func (m *MockResponder) SendDocumentURL(url, caption string) error {
	if m.DocumentError != nil {
		return m.DocumentError
	}
	m.DocsURLs = append(m.DocsURLs, url)
	return nil
}
