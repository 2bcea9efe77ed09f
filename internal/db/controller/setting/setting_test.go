package setting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/testutil"
)

func TestGet(t *testing.T) {
	db := testutil.DB(t)

	require.NoError(t, Set(db, "existing", []byte(`"x"`)))

	testCases := []struct {
		name          string
		settingName   string
		nilDB         bool
		expectedError error
		expectedValue []byte
	}{
		{name: "nil database", settingName: "existing", nilDB: true, expectedError: controller.ErrDBNil},
		{name: "empty name", settingName: "", expectedError: ErrSettingNameEmpty},
		{name: "not found", settingName: "missing", expectedError: ErrSettingNotFound},
		{name: "found", settingName: "existing", expectedValue: []byte(`"x"`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := db
			if tc.nilDB {
				conn = nil
			}

			s, err := Get(conn, tc.settingName)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, s)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedValue, s.Value)
		})
	}
}

func TestSetOverwrites(t *testing.T) {
	db := testutil.DB(t)

	require.NoError(t, Set(db, "k", []byte("1")))
	require.NoError(t, Set(db, "k", []byte("2")))

	s, err := Get(db, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), s.Value)

	require.ErrorIs(t, Set(db, "", nil), ErrSettingNameEmpty)
}

func TestStoreLoadDelete(t *testing.T) {
	db := testutil.DB(t)

	type state struct {
		Version  int
		SeededAt time.Time
	}

	in := state{Version: 1, SeededAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, Store(db, "seed", in))

	var out state
	require.NoError(t, Load(db, "seed", &out))
	assert.Equal(t, in, out)

	require.NoError(t, Delete(db, "seed"))
	require.ErrorIs(t, Load(db, "seed", &out), ErrSettingNotFound)
	require.NoError(t, Delete(db, "seed"))
}
