package model

// Viewer is the identity a read operation runs as. The zero value is an
// anonymous viewer.
//
// Read paths that decorate results per user (user_rating, membership flags)
// take a Viewer explicitly instead of digging the user out of a context, so
// the anonymous case is visible in every signature.
type Viewer struct {
	UserID string
}

func Anonymous() Viewer { return Viewer{} }

func AuthenticatedViewer(userID string) Viewer { return Viewer{UserID: userID} }

func (v Viewer) IsAuthenticated() bool { return v.UserID != "" }
