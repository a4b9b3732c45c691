package domain

// Participant is a workspace member under investigation. The directory is
// fetched once per run and treated as an immutable snapshot.
type Participant struct {
	ID        string
	Name      string
	AvatarURL string
}

// Channel identifies one conversation container on the platform.
type Channel struct {
	ID   string
	Name string
}
