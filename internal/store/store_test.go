package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPick/internal/model"
)

func sampleResult(ts time.Time) *model.ScanResult {
	return &model.ScanResult{
		RunID:     "run-1",
		Timestamp: ts,
		Count:     1,
		Data: []model.Candidate{
			{
				Signal: model.Signal{
					Instrument: model.Instrument{Code: "600000", Name: "浦发银行", Market: "sh"},
					Rule:       model.RuleLowPositionVolume,
					Type:       model.SignalChipGather,
					Label:      "低位放量",
					Desc:       "底部放量 → 资金吸筹",
					Analysis:   "analysis",
					Metrics:    model.Metrics{Price: 10.5, Position: 0.1234, VolumeRatio: 2.51, PctChg: 1.5},
				},
				Enrichment: model.Enrichment{Code: "600000", Industry: "银行", CycleStage: "底部", Analysis: "ok", Score: 88, Suggestion: "关注"},
			},
		},
	}
}

func TestSaveLoadLatest_RoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "results"))
	in := sampleResult(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))

	path, err := s.Save(in)
	require.NoError(t, err)
	assert.Equal(t, "smart_pick_20240305.json", filepath.Base(path))

	out, err := s.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadLatest_PicksNewestDate(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Save(sampleResult(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	newer := sampleResult(time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC))
	newer.RunID = "run-2"
	_, err = s.Save(newer)
	require.NoError(t, err)

	dates, err := s.ListDates()
	require.NoError(t, err)
	assert.Equal(t, []string{"20241102", "20240109"}, dates)

	out, err := s.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "run-2", out.RunID)
}

func TestSave_SameDayOverwrites(t *testing.T) {
	s := New(t.TempDir())
	first := sampleResult(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	second := sampleResult(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	second.RunID = "afternoon"

	_, err := s.Save(first)
	require.NoError(t, err)
	_, err = s.Save(second)
	require.NoError(t, err)

	dates, err := s.ListDates()
	require.NoError(t, err)
	assert.Len(t, dates, 1)

	out, err := s.LoadByDate("20240305")
	require.NoError(t, err)
	assert.Equal(t, "afternoon", out.RunID)
}

func TestLoad_NoData(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))

	_, err := s.LoadLatest()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.LoadByDate("20240101")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.LoadByDate("2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smart_pick_20240101.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	s := New(dir)
	_, err := s.LoadLatest()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "list.json")
	in := []model.Instrument{{Code: "000001", Name: "平安银行", Market: "sz"}}
	require.NoError(t, WriteJSON(path, in))

	var out []model.Instrument
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)

	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	assert.True(t, os.IsNotExist(err))
}
