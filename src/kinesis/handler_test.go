package kinesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cgm-alert-pipeline/src/alerts"
	"cgm-alert-pipeline/src/cache"
	"cgm-alert-pipeline/src/dynamo"
	"cgm-alert-pipeline/src/types"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func float(v float64) *float64 { return &v }

type fakeStore struct {
	sessions    map[string][]types.OAuthSession
	users       map[string]*types.PersonProfile
	links       map[string][]types.GuardianLink
	userErr     error
	listCalls   int
	userLookups []string
	latest      []types.GlucoseReading
	saved       []types.GlucoseReading
	failValues  map[int]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:   map[string][]types.OAuthSession{},
		users:      map[string]*types.PersonProfile{},
		links:      map[string][]types.GuardianLink{},
		failValues: map[int]bool{},
	}
}

func (f *fakeStore) ListSessionsByUserId(_ context.Context, remoteUserID string) ([]types.OAuthSession, error) {
	f.listCalls++
	return f.sessions[remoteUserID], nil
}

func (f *fakeStore) GetUser(_ context.Context, email string) (*types.PersonProfile, error) {
	f.userLookups = append(f.userLookups, email)
	if f.userErr != nil {
		return nil, f.userErr
	}
	profile, ok := f.users[email]
	if !ok {
		return nil, dynamo.ErrNotFound
	}
	return profile, nil
}

func (f *fakeStore) ListGuardianLinksForUser(_ context.Context, email string) ([]types.GuardianLink, error) {
	return f.links[email], nil
}

func (f *fakeStore) SaveLatestReading(_ context.Context, reading types.GlucoseReading, _ string) error {
	if f.failValues[reading.Value] {
		return errors.New("write failed")
	}
	f.latest = append(f.latest, reading)
	return nil
}

func (f *fakeStore) SaveReading(_ context.Context, reading types.GlucoseReading) error {
	if f.failValues[reading.Value] {
		return errors.New("write failed")
	}
	f.saved = append(f.saved, reading)
	return nil
}

type fakeProvider struct {
	settings []types.AlertSetting
	err      error
}

func (f *fakeProvider) FetchDeviceAlertSettings(context.Context, types.OAuthSession) ([]types.AlertSetting, error) {
	return f.settings, f.err
}

type pushCall struct {
	destination string
	title       string
}

type voiceCall struct {
	phone      string
	isGuardian bool
}

type fakeNotifier struct {
	pushes []pushCall
	lows   []voiceCall
	highs  []voiceCall
}

func (f *fakeNotifier) PublishPush(_ context.Context, destination, title, _, _ string) error {
	f.pushes = append(f.pushes, pushCall{destination: destination, title: title})
	return nil
}

func (f *fakeNotifier) SendLowAlertVoiceCall(_ context.Context, phone string, isGuardian bool) error {
	f.lows = append(f.lows, voiceCall{phone, isGuardian})
	return nil
}

func (f *fakeNotifier) SendHighAlertVoiceCall(_ context.Context, phone string, isGuardian bool) error {
	f.highs = append(f.highs, voiceCall{phone, isGuardian})
	return nil
}

type memoryCache struct {
	items map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.items[key] = value
}

type fixture struct {
	store    *fakeStore
	provider *fakeProvider
	notifier *fakeNotifier
	cache    *memoryCache
	proc     *AlertProcessor
}

func newFixture() *fixture {
	f := &fixture{
		store:    newFakeStore(),
		provider: &fakeProvider{},
		notifier: &fakeNotifier{},
		cache:    &memoryCache{items: map[string][]byte{}},
	}
	f.store.sessions["remote-1"] = []types.OAuthSession{{
		Email:        "ana@example.com",
		ProviderType: types.ProviderDexcom,
		ExpiresAt:    testNow.Add(time.Hour).Unix(),
		RemoteUserID: "remote-1",
	}}
	f.store.users["ana@example.com"] = &types.PersonProfile{
		Email:         "ana@example.com",
		Nickname:      "Ana",
		UserTopicArn:  "arn:aws:sns:us-east-1:1:ana",
		GlucoseAlerts: true,
	}
	f.proc = NewAlertProcessor(f.store, f.provider, f.notifier, f.cache, AlertOptions{
		DefaultSettings: alerts.DefaultSettings(alerts.Thresholds{UrgentLow: 40, Low: 70, High: 180}),
		Now:             func() time.Time { return testNow },
	})
	return f
}

func record(t *testing.T, seq string, userID string, value int, systemTime string) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(types.TelemetryRecord{
		UserID:  userID,
		Reading: types.GlucoseReading{Value: value, SystemTime: systemTime, Trend: types.TrendFlat},
	})
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return events.KinesisEventRecord{
		EventSource: "aws:kinesis",
		Kinesis:     events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func batch(records ...events.KinesisEventRecord) events.KinesisEvent {
	return events.KinesisEvent{Records: records}
}

func failedIDs(resp events.KinesisEventResponse) []string {
	var ids []string
	for _, f := range resp.BatchItemFailures {
		ids = append(ids, f.ItemIdentifier)
	}
	return ids
}

func TestStaleReadingSkipsAllLookups(t *testing.T) {
	f := newFixture()

	resp := f.proc.Handler(context.Background(), batch(record(t, "1", "remote-1", 250, "2026-01-01T11:50:00")))

	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("stale reading reported as failure: %v", failedIDs(resp))
	}
	if f.store.listCalls != 0 || len(f.store.userLookups) != 0 {
		t.Fatalf("stale reading reached storage: list=%d users=%v", f.store.listCalls, f.store.userLookups)
	}
	if len(f.store.latest) != 0 || len(f.notifier.pushes) != 0 {
		t.Fatalf("stale reading persisted or notified")
	}
}

func TestRepeatedAlertPushesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	key := cache.StatusKey(types.ProviderDexcom, "ana@example.com")

	f.proc.Handler(ctx, batch(record(t, "1", "remote-1", 250, "2026-01-01T11:55:00")))
	if len(f.notifier.pushes) != 1 {
		t.Fatalf("expected 1 push, got %d", len(f.notifier.pushes))
	}
	first := append([]byte(nil), f.cache.items[key]...)

	f.proc.Handler(ctx, batch(record(t, "2", "remote-1", 240, "2026-01-01T11:58:00")))
	if len(f.notifier.pushes) != 1 {
		t.Fatalf("repeat alert pushed again: %d pushes", len(f.notifier.pushes))
	}
	if !bytes.Equal(first, f.cache.items[key]) {
		t.Fatalf("cached status changed: %s -> %s", first, f.cache.items[key])
	}

	status, ok := cache.LoadAlertStatus(ctx, f.cache, key)
	if !ok || status.LastAlertStatus == nil || *status.LastAlertStatus != types.AlertHigh {
		t.Fatalf("unexpected cached status %+v", status)
	}
	if len(f.store.latest) != 2 {
		t.Fatalf("expected latest reading saved twice, got %d", len(f.store.latest))
	}
}

func TestReturnToNormalRearmsPush(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.proc.Handler(ctx, batch(
		record(t, "1", "remote-1", 250, "2026-01-01T11:55:00"),
		record(t, "2", "remote-1", 120, "2026-01-01T11:56:00"),
		record(t, "3", "remote-1", 260, "2026-01-01T11:57:00"),
	))

	if len(f.notifier.pushes) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(f.notifier.pushes))
	}
}

func TestGuardianFanOut(t *testing.T) {
	f := newFixture()
	f.store.links["ana@example.com"] = []types.GuardianLink{
		{GuardianEmail: "gus@example.com", UserEmail: "ana@example.com", Status: types.GuardianActive, LowGlucoseAlertThreshold: float(75)},
		{GuardianEmail: "pam@example.com", UserEmail: "ana@example.com", Status: types.GuardianPending, LowGlucoseAlertThreshold: float(300), HighGlucoseAlertThreshold: float(1)},
	}
	f.store.users["gus@example.com"] = &types.PersonProfile{
		Email: "gus@example.com", PhoneNumber: "+15550001", UserTopicArn: "arn:aws:sns:us-east-1:1:gus", GlucoseAlerts: true,
	}
	f.store.users["pam@example.com"] = &types.PersonProfile{
		Email: "pam@example.com", PhoneNumber: "+15550002", UserTopicArn: "arn:aws:sns:us-east-1:1:pam", GlucoseAlerts: true,
	}

	f.proc.Handler(context.Background(), batch(record(t, "1", "remote-1", 60, "2026-01-01T11:58:00")))

	if len(f.notifier.pushes) != 2 {
		t.Fatalf("expected pushes to user and active guardian, got %+v", f.notifier.pushes)
	}
	if f.notifier.pushes[0].title != "→ Low Glucose" {
		t.Errorf("user title = %q", f.notifier.pushes[0].title)
	}
	if f.notifier.pushes[1].destination != "arn:aws:sns:us-east-1:1:gus" || f.notifier.pushes[1].title != "Ana: → Low Glucose" {
		t.Errorf("guardian push = %+v", f.notifier.pushes[1])
	}
	for _, p := range f.notifier.pushes {
		if p.destination == "arn:aws:sns:us-east-1:1:pam" {
			t.Fatalf("pending guardian received a push")
		}
	}
	if len(f.notifier.lows) != 1 || f.notifier.lows[0] != (voiceCall{"+15550001", true}) {
		t.Fatalf("expected one guardian low call, got %+v", f.notifier.lows)
	}
	if len(f.notifier.highs) != 0 {
		t.Fatalf("pending guardian received a high call")
	}
	for _, email := range f.store.userLookups {
		if email == "pam@example.com" {
			t.Fatalf("pending guardian profile was loaded")
		}
	}
}

func TestVoiceLowAlertIsSticky(t *testing.T) {
	f := newFixture()
	profile := f.store.users["ana@example.com"]
	profile.PhoneNumber = "+15559999"
	profile.LowGlucoseAlertThreshold = float(80)
	profile.HighGlucoseAlertThreshold = float(250)
	ctx := context.Background()

	values := []int{75, 65, 90, 60}
	for i, v := range values {
		f.proc.Handler(ctx, batch(record(t, strconv.Itoa(i), "remote-1", v, "2026-01-01T11:58:00")))
	}

	if len(f.notifier.lows) != 2 {
		t.Fatalf("expected 2 low calls, got %d", len(f.notifier.lows))
	}
	if f.notifier.lows[0] != (voiceCall{"+15559999", false}) {
		t.Fatalf("unexpected call %+v", f.notifier.lows[0])
	}
	if len(f.notifier.highs) != 0 {
		t.Fatalf("unexpected high calls %+v", f.notifier.highs)
	}
}

func TestProviderSettingsOverrideDefaults(t *testing.T) {
	f := newFixture()
	f.provider.settings = []types.AlertSetting{{AlertName: types.AlertHigh, Enabled: true, Value: 120}}

	f.proc.Handler(context.Background(), batch(record(t, "1", "remote-1", 150, "2026-01-01T11:58:00")))

	if len(f.notifier.pushes) != 1 || f.notifier.pushes[0].title != "→ High Glucose" {
		t.Fatalf("expected high push from device settings, got %+v", f.notifier.pushes)
	}
}

func TestFailuresReportedPerRecord(t *testing.T) {
	f := newFixture()
	f.store.failValues[102] = true
	f.store.failValues[105] = true

	var records []events.KinesisEventRecord
	for i := 1; i <= 6; i++ {
		records = append(records, record(t, strconv.Itoa(i), "remote-1", 100+i, "2026-01-01T11:58:00"))
	}
	resp := f.proc.Handler(context.Background(), batch(records...))

	ids := failedIDs(resp)
	if len(ids) != 2 || ids[0] != "2" || ids[1] != "5" {
		t.Fatalf("failed ids = %v", ids)
	}
	if len(f.store.latest) != 4 {
		t.Fatalf("expected 4 persisted readings, got %d", len(f.store.latest))
	}
}

func TestMalformedRecordsFail(t *testing.T) {
	f := newFixture()
	bad := events.KinesisEventRecord{Kinesis: events.KinesisRecord{Data: []byte("{not json"), SequenceNumber: "1"}}

	resp := f.proc.Handler(context.Background(), batch(
		bad,
		record(t, "2", "remote-1", 100, "yesterday"),
		record(t, "3", "remote-1", 100, "2026-01-01T11:58:00"),
	))

	ids := failedIDs(resp)
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("failed ids = %v", ids)
	}
}

func TestSessionFailureStillSavesLatest(t *testing.T) {
	f := newFixture()
	f.store.userErr = errors.New("table unavailable")

	resp := f.proc.Handler(context.Background(), batch(record(t, "1", "remote-1", 250, "2026-01-01T11:58:00")))

	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("session failure escalated: %v", failedIDs(resp))
	}
	if len(f.store.latest) != 1 {
		t.Fatalf("latest reading not saved")
	}
	if len(f.cache.items) != 0 {
		t.Fatalf("status written for a session that was not evaluated")
	}
}

func TestIneligibleSessionsSkipped(t *testing.T) {
	f := newFixture()
	f.store.sessions["remote-1"] = []types.OAuthSession{
		{Email: "ana@example.com", ProviderType: types.ProviderDexcom, ExpiresAt: testNow.Add(-time.Minute).Unix()},
		{Email: "ana@example.com", ProviderType: "libre", ExpiresAt: testNow.Add(time.Hour).Unix()},
	}

	f.proc.Handler(context.Background(), batch(record(t, "1", "remote-1", 250, "2026-01-01T11:58:00")))

	if len(f.store.userLookups) != 0 || len(f.notifier.pushes) != 0 {
		t.Fatalf("ineligible session was evaluated")
	}
	if len(f.cache.items) != 0 {
		t.Fatalf("status written with no evaluated session")
	}
	if len(f.store.latest) != 1 {
		t.Fatalf("latest reading not saved")
	}
}
