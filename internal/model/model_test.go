package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	s, err := ParseSide("front")
	require.NoError(t, err)
	assert.Equal(t, SideFront, s)

	s, err = ParseSide("back")
	require.NoError(t, err)
	assert.Equal(t, SideBack, s)

	for _, in := range []string{"", "FRONT", "sideways"} {
		_, err := ParseSide(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestItemPathForSide(t *testing.T) {
	it := &Item{FrontPath: "f.tif", BackPath: "b.tif"}
	assert.Equal(t, "f.tif", it.PathForSide(SideFront))
	assert.Equal(t, "b.tif", it.PathForSide(SideBack))
}

func TestWorstStatus(t *testing.T) {
	assert.Equal(t, StatusHealthy, WorstStatus(StatusHealthy, StatusHealthy))
	assert.Equal(t, StatusUnknown, WorstStatus(StatusHealthy, StatusUnknown))
	assert.Equal(t, StatusDegraded, WorstStatus(StatusUnknown, StatusDegraded))
	assert.Equal(t, StatusUnhealthy, WorstStatus(StatusDegraded, StatusUnhealthy))
	assert.Equal(t, StatusUnhealthy, WorstStatus(StatusUnhealthy, StatusHealthy))
}

func TestConnectorRotationState(t *testing.T) {
	c := &Connector{}
	assert.Equal(t, RotationStable, c.RotationState())

	keyID := "key-2"
	c.SecondaryKeyID = &keyID
	assert.Equal(t, RotationRotating, c.RotationState())
}

func TestConnectorSecondaryUsable(t *testing.T) {
	now := time.Now()
	keyID := "key-2"

	c := &Connector{}
	assert.False(t, c.SecondaryUsable(now))

	future := now.Add(time.Hour)
	c.SecondaryKeyID = &keyID
	c.SecondaryKeyExpiresAt = &future
	assert.True(t, c.SecondaryUsable(now))

	past := now.Add(-time.Minute)
	c.SecondaryKeyExpiresAt = &past
	assert.False(t, c.SecondaryUsable(now))
}
