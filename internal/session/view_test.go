package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/policy"
)

func openView(t *testing.T, gw *fakeGateway, auth AuthSource, profile Profile, courseID string) View {
	t.Helper()
	ctrl := New(Config{Gateway: gw, Auth: auth, Profile: profile})
	require.NoError(t, ctrl.Open(context.Background(), courseID, OpenOptions{}))
	return ctrl.View()
}

func TestViewGuestIsLocked(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, false, false)

	view := openView(t, gw, Guest, DetailProfile, "c1")

	assert.Equal(t, policy.CapabilitySet{}, view.Capabilities)
	assert.Equal(t, AffordanceLogin, view.Affordance)
	require.NotNil(t, view.Selected)
	assert.True(t, view.Selected.Locked)
	assert.Nil(t, view.Selected.Video)
	assert.Equal(t, LockMessageGuest, view.Selected.LockMessage)
	assert.Equal(t, "https://cdn.test/c1.png", view.Selected.PosterURL)
	assert.Nil(t, view.Progress)
	assert.Nil(t, view.Lessons[0].Completed)
}

func TestViewStudentNotEnrolled(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, false, false)

	view := openView(t, gw, authAs(student), DetailProfile, "c1")

	assert.Equal(t, AffordanceEnroll, view.Affordance)
	assert.True(t, view.Selected.Locked)
	assert.Equal(t, LockMessageAuthenticated, view.Selected.LockMessage)
	assert.Nil(t, view.Selected.Completed)
}

func TestViewEnrolledStudent(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, true, true, false, false)

	view := openView(t, gw, authAs(student), DetailProfile, "c1")

	assert.Equal(t, AffordanceEnrolled, view.Affordance)
	require.NotNil(t, view.Selected.Video)
	assert.True(t, view.Selected.Video.IsEmbedded)
	assert.Equal(t, "https://www.youtube.com/embed/vid1", view.Selected.Video.Target)
	assert.False(t, view.Selected.Locked)
	assert.Contains(t, view.Selected.Body.HTML, "<em>markdown</em>")

	require.NotNil(t, view.Progress)
	assert.Equal(t, 1, view.Progress.Completed)
	assert.Equal(t, 3, view.Progress.Total)
	assert.Equal(t, 33, view.Progress.Display)

	require.Len(t, view.Lessons, 3)
	assert.Equal(t, 3, view.Lessons[2].Number)
	require.NotNil(t, view.Lessons[0].Completed)
	assert.True(t, *view.Lessons[0].Completed)
	assert.True(t, view.Lessons[0].Selected)
}

func TestViewCompactProfileHidesMarkers(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, true, true)

	view := openView(t, gw, authAs(student), CompactProfile, "c1")

	assert.Equal(t, "compact", view.Profile)
	assert.Nil(t, view.Lessons[0].Completed)
	require.NotNil(t, view.Progress)
}

func TestViewOwnerOfInactiveCourse(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", false, false, false)

	view := openView(t, gw, authAs(owner), DetailProfile, "c1")

	assert.Nil(t, view.Unavailable)
	assert.True(t, view.IsOwner)
	assert.Equal(t, AffordanceManageRoster, view.Affordance)
	require.NotNil(t, view.Selected.Video)
	assert.Nil(t, view.Progress)
}

func TestViewInactiveCourseIsUnavailable(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", false, true, false)

	view := openView(t, gw, authAs(student), DetailProfile, "c1")

	require.NotNil(t, view.Unavailable)
	assert.Equal(t, UnavailableMessage, view.Unavailable.Message)
	assert.Nil(t, view.Selected)
	assert.Empty(t, view.Lessons)
	assert.Equal(t, AffordanceNone, view.Affordance)
}

func TestViewNonOwnerInstructorMatchesGuestLock(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, false, false)
	other := &models.Viewer{ID: "inst-2", Role: models.RoleInstructor}

	view := openView(t, gw, authAs(other), DetailProfile, "c1")

	assert.True(t, view.Capabilities.None())
	assert.Equal(t, AffordanceNone, view.Affordance)
	assert.True(t, view.Selected.Locked)
}

func TestViewFileVideoIsDirect(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, true, false)
	gw.lessons["c1"][0].Video = models.Video{URL: "https://cdn.test/intro.mp4", Kind: models.VideoKindFile}

	view := openView(t, gw, authAs(student), DetailProfile, "c1")

	assert.False(t, view.Selected.Video.IsEmbedded)
	assert.Equal(t, "https://cdn.test/intro.mp4", view.Selected.Video.Target)
}

func TestViewSanitisesHTMLBody(t *testing.T) {
	gw := newFakeGateway()
	seedCourse(gw, "c1", true, true, false)
	gw.lessons["c1"][0].Content = `<p onclick="x()">Hi</p><script>bad()</script>`

	view := openView(t, gw, authAs(student), DetailProfile, "c1")

	assert.Equal(t, "<p>Hi</p>", view.Selected.Body.HTML)
}
