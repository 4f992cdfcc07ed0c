package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/repository/mocks"
)

func TestRecorder_Record(t *testing.T) {
	repo := &mocks.LinkRepository{}
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	repo.On("RecordClick", mock.Anything, mock.MatchedBy(func(c *domain.ClickEvent) bool {
		return c.Shortcode == "abc123" &&
			c.Timestamp.Equal(at) &&
			c.Referrer == "https://ref.example" &&
			c.UserAgent == "curl/8.0" &&
			c.IP == "10.0.0.1" &&
			c.Location == domain.UnknownAttribute
	})).Return(nil)

	before := testutil.ToFloat64(metrics.ClicksRecordedTotal)

	r := NewRecorder(repo)
	ok := r.Record(context.Background(), "abc123", at, domain.ClickMeta{
		Referrer:  "https://ref.example",
		UserAgent: "curl/8.0",
		IP:        "10.0.0.1",
	})

	assert.True(t, ok)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ClicksRecordedTotal))
	repo.AssertExpectations(t)
}

func TestRecorder_Defaults(t *testing.T) {
	repo := &mocks.LinkRepository{}
	repo.On("RecordClick", mock.Anything, mock.MatchedBy(func(c *domain.ClickEvent) bool {
		return c.Referrer == domain.DirectReferrer &&
			c.UserAgent == domain.UnknownAttribute &&
			c.IP == domain.UnknownAttribute &&
			c.Location == domain.UnknownAttribute
	})).Return(nil)

	ok := NewRecorder(repo).Record(context.Background(), "abc123", time.Now(), domain.ClickMeta{})

	assert.True(t, ok)
	repo.AssertExpectations(t)
}

func TestRecorder_FailureIsSwallowed(t *testing.T) {
	repo := &mocks.LinkRepository{}
	repo.On("RecordClick", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	before := testutil.ToFloat64(metrics.ClickRecordErrorsTotal)

	ok := NewRecorder(repo).Record(context.Background(), "abc123", time.Now(), domain.ClickMeta{})

	assert.False(t, ok)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ClickRecordErrorsTotal))
}
