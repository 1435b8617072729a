package settings

import (
	"context"
	"errors"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

type failingStore struct{ KVStore }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis down")
}

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, "test:settings", Defaults("Europe/Berlin"), nil, nil), store
}

func TestLoadReturnsDefaultsWhenNothingStored(t *testing.T) {
	svc, _ := newTestService()

	got, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults("Europe/Berlin"), got)
	assert.Equal(t, "UTC", Defaults("").System.Timezone)
}

func TestSaveThenLoad(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	value := svc.Defaults()
	value.UI.Theme = "dark"
	value.Export.MaxRows = 500
	_, err := svc.Save(ctx, value)
	require.NoError(t, err)

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.UI.Theme)
	assert.Equal(t, 500, got.Export.MaxRows)

	value.UI.Theme = "neon"
	_, err = svc.Save(ctx, value)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUpdateMergesPartialDocument(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	got, err := svc.Update(ctx, []byte(`{"system":{"timeFormat":"24h"},"notifications":{"soundEnabled":false}}`))
	require.NoError(t, err)
	assert.Equal(t, "24h", got.System.TimeFormat)
	assert.Equal(t, "30d", got.System.DefaultTimeRange)
	assert.Equal(t, "Europe/Berlin", got.System.Timezone)
	assert.False(t, got.Notifications.SoundEnabled)
	assert.True(t, got.Notifications.Desktop)

	got, err = svc.Update(ctx, []byte(`{"ui":{"compactMode":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "24h", got.System.TimeFormat)
	assert.True(t, got.UI.CompactMode)
}

func TestUpdateRejectsUnknownAndInvalidValues(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]string{
		"unknown section": `{"plugins":{"enabled":true}}`,
		"unknown key":     `{"ui":{"fontSize":14}}`,
		"wrong type":      `{"export":{"maxRows":"many"}}`,
		"invalid range":   `{"system":{"defaultTimeRange":"7d"}}`,
		"invalid zone":    `{"system":{"timezone":"Mars/Olympus"}}`,
		"trailing data":   `{"ui":{"theme":"dark"}} {}`,
		"not json":        `theme=dark`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, []byte(body))
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, svc.Defaults(), got)
}

func TestResetRestoresDefaults(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, []byte(`{"security":{"sessionTimeout":30}}`))
	require.NoError(t, err)

	got, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 480, got.Security.SessionTimeout)

	_, err = store.Get(ctx, "test:settings")
	assert.Error(t, err)
}

func TestLoadIgnoresCorruptStoredDocument(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "test:settings", []byte(`{"legacy":true}`)))

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, svc.Defaults(), got)
}

func TestLoadSurfacesStoreFailure(t *testing.T) {
	svc := NewService(failingStore{}, "", Defaults(""), nil, nil)

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
