package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobmate/aggregator-service/internal/model"
)

func TestTags_RoundTripPreservesOrder(t *testing.T) {
	stored := model.JoinTags([]string{"Remote", "Senior"})
	assert.Equal(t, "Remote,Senior", stored)
	assert.Equal(t, []string{"Remote", "Senior"}, model.SplitTags(stored))
}

func TestJoinTags_TrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, "go,k8s", model.JoinTags([]string{" go ", "", "   ", "k8s"}))
	assert.Equal(t, "", model.JoinTags(nil))
}

func TestSplitTags_PreJoinedUpstreamString(t *testing.T) {
	assert.Equal(t, []string{"Remote", "Senior", "Go"}, model.SplitTags("Remote, Senior ,Go,"))
}

func TestSplitTags_EmptyYieldsEmptySlice(t *testing.T) {
	got := model.SplitTags("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, model.SplitTags(" , ,"))
}
