package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-ml/compkb/internal/model"
)

const listFixture = `
<ul>
  <li class="MuiListItem-root">
    <a href="/competitions/titanic/discussion/12345">1st Place Solution · Last comment 3d ago by someone</a>
    <a aria-label="Chris Deotte's profile" href="/chrisdeotte"></a>
    <span>Grandmaster</span>
    <svg><circle style="stroke: rgb(255,255,255)"></circle><circle style="stroke: rgb(241, 196, 15)"></circle></svg>
    <span aria-label="142 votes">142</span>
    <span>37 comments</span>
  </li>
  <li class="MuiListItem-root">
    <span>push_pin</span>
    <a href="/competitions/titanic/discussion/1">Welcome to the competition</a>
    <span aria-label="9 votes">9</span>
  </li>
  <li class="MuiListItem-root">
    <a href="/competitions/titanic/writeups/team-rocket">Our approach</a>
    <a aria-label="jane's profile" href="/jane"></a>
    <span aria-label="55 votes">55</span>
    <span>4 comments</span>
  </li>
  <li class="MuiListItem-root">
    <div>no topic link here</div>
  </li>
</ul>`

func TestParseList(t *testing.T) {
	items, err := ParseList(listFixture, "https://www.kaggle.com")
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "1st Place Solution", first.Title)
	assert.Equal(t, "https://www.kaggle.com/competitions/titanic/discussion/12345", first.URL)
	assert.Equal(t, "Chris Deotte", first.Author)
	assert.Equal(t, model.TierGrandmaster, first.AuthorTier)
	assert.Equal(t, "rgb(241, 196, 15)", first.TierColor)
	assert.Equal(t, 142, first.VoteCount)
	assert.Equal(t, 37, first.CommentCount)
	assert.False(t, first.IsPinned)
	assert.Equal(t, model.CategoryDiscussion, first.Category)

	pinned := items[1]
	assert.True(t, pinned.IsPinned)

	writeup := items[2]
	assert.Equal(t, model.CategoryWriteup, writeup.Category)
	assert.Equal(t, "Our approach", writeup.Title)
	assert.Equal(t, "jane", writeup.Author)
	assert.Empty(t, writeup.TierColor)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		author string
		want   string
	}{
		{"middot metadata", "1st Place Solution · Last comment 3d ago", "", "1st Place Solution"},
		{"last comment", "EDA notesLast comment by bob", "", "EDA notes"},
		{"posted suffix", "Great baselinePosted 2 days ago", "", "Great baseline"},
		{"parenthesized author", "2nd place · solo (Aqsa)", "Aqsa", "2nd place · solo"},
		{"trailing author", "My findings Aqsa", "Aqsa", "My findings"},
		{"plain", "Just a title", "someone", "Just a title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.title, tt.author))
		})
	}
}

func TestCategoryForURL(t *testing.T) {
	assert.Equal(t, model.CategoryWriteup,
		CategoryForURL("https://www.kaggle.com/competitions/foo/writeups/bar"))
	assert.Equal(t, model.CategoryDiscussion,
		CategoryForURL("https://www.kaggle.com/competitions/foo/discussion/99"))
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, 42, leadingInt("42 votes"))
	assert.Equal(t, 0, leadingInt("no votes"))
	assert.Equal(t, 0, leadingInt(""))
}
