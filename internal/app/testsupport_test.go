package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/domain/roster"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// --- workspace.Repository ---

type fakeWorkspaceRepo struct {
	configs map[string]*workspace.Config
}

func newFakeWorkspaceRepo() *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{configs: make(map[string]*workspace.Config)}
}

func (r *fakeWorkspaceRepo) Get(_ context.Context, workspaceID string) (*workspace.Config, error) {
	cfg, ok := r.configs[workspaceID]
	if !ok {
		return nil, idb.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *fakeWorkspaceRepo) Upsert(_ context.Context, cfg *workspace.Config) error {
	copied := *cfg
	r.configs[cfg.WorkspaceID] = &copied
	return nil
}

func (r *fakeWorkspaceRepo) ListAll(_ context.Context) ([]*workspace.Config, error) {
	out := make([]*workspace.Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		copied := *cfg
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkspaceID < out[j].WorkspaceID })
	return out, nil
}

// --- roster.Repository ---

type fakeRosterRepo struct {
	nextID   int64
	members  map[int64]*roster.Member
	excusals []*roster.Excusal
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{members: make(map[int64]*roster.Member)}
}

func (r *fakeRosterRepo) Create(_ context.Context, m *roster.Member) error {
	r.nextID++
	m.ID = r.nextID
	copied := *m
	r.members[m.ID] = &copied
	return nil
}

func (r *fakeRosterRepo) GetByID(_ context.Context, id int64) (*roster.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, idb.ErrMemberNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeRosterRepo) GetByUserID(_ context.Context, workspaceID, userID string) (*roster.Member, error) {
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, idb.ErrMemberNotFound
}

func (r *fakeRosterRepo) Update(_ context.Context, m *roster.Member) error {
	if _, ok := r.members[m.ID]; !ok {
		return idb.ErrMemberNotFound
	}
	copied := *m
	r.members[m.ID] = &copied
	return nil
}

func (r *fakeRosterRepo) ListActive(_ context.Context, workspaceID string) ([]*roster.Member, error) {
	return r.list(workspaceID, true), nil
}

func (r *fakeRosterRepo) ListAll(_ context.Context, workspaceID string) ([]*roster.Member, error) {
	return r.list(workspaceID, false), nil
}

func (r *fakeRosterRepo) list(workspaceID string, activeOnly bool) []*roster.Member {
	out := make([]*roster.Member, 0)
	for _, m := range r.members {
		if m.WorkspaceID != workspaceID || (activeOnly && !m.IsActive) {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRosterRepo) AddExcusal(_ context.Context, e *roster.Excusal) error {
	r.nextID++
	e.ID = r.nextID
	copied := *e
	r.excusals = append(r.excusals, &copied)
	return nil
}

func (r *fakeRosterRepo) RemoveExcusal(_ context.Context, memberID int64, coveringDate time.Time) (int64, error) {
	kept := r.excusals[:0]
	var removed int64
	for _, e := range r.excusals {
		if e.MemberID == memberID && e.Covers(coveringDate) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.excusals = kept
	return removed, nil
}

func (r *fakeRosterRepo) ListExcusalsByMember(_ context.Context, memberID int64) ([]*roster.Excusal, error) {
	out := make([]*roster.Excusal, 0)
	for _, e := range r.excusals {
		if e.MemberID == memberID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) ListExcusalsByWorkspace(_ context.Context, workspaceID string) ([]*roster.Excusal, error) {
	out := make([]*roster.Excusal, 0)
	for _, e := range r.excusals {
		m, ok := r.members[e.MemberID]
		if !ok || m.WorkspaceID != workspaceID || !m.IsActive {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRosterRepo) DeleteExcusalsEndingBefore(_ context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	kept := r.excusals[:0]
	var removed int64
	for _, e := range r.excusals {
		m, ok := r.members[e.MemberID]
		if ok && m.WorkspaceID == workspaceID && e.EndDate.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.excusals = kept
	return removed, nil
}

// --- standup.Repository ---

type fakeStandupRepo struct {
	roster    *fakeRosterRepo
	nextID    int64
	runs      map[int64]*standup.Run
	responses map[string]*standup.Response
}

func newFakeStandupRepo(rosterRepo *fakeRosterRepo) *fakeStandupRepo {
	return &fakeStandupRepo{
		roster:    rosterRepo,
		runs:      make(map[int64]*standup.Run),
		responses: make(map[string]*standup.Response),
	}
}

func respKey(runID, memberID int64) string {
	return fmt.Sprintf("%d|%d", runID, memberID)
}

func (r *fakeStandupRepo) UpsertRun(_ context.Context, run *standup.Run) error {
	for _, existing := range r.runs {
		if existing.WorkspaceID == run.WorkspaceID && existing.RunDate.Equal(run.RunDate) {
			*run = *existing
			return nil
		}
	}
	r.nextID++
	run.ID = r.nextID
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *fakeStandupRepo) GetRun(_ context.Context, workspaceID string, runDate time.Time) (*standup.Run, error) {
	for _, run := range r.runs {
		if run.WorkspaceID == workspaceID && run.RunDate.Equal(runDate) {
			copied := *run
			return &copied, nil
		}
	}
	return nil, idb.ErrRunNotFound
}

func (r *fakeStandupRepo) GetRunByID(_ context.Context, id int64) (*standup.Run, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, idb.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (r *fakeStandupRepo) CloseRun(_ context.Context, runID int64, closedAt time.Time) error {
	run, ok := r.runs[runID]
	if !ok || run.Status != standup.RunOpen {
		return idb.ErrRunNotFound
	}
	run.Status = standup.RunClosed
	run.ClosedAt.Time = closedAt
	run.ClosedAt.Valid = true
	return nil
}

func (r *fakeStandupRepo) ListClosedRunsBetween(_ context.Context, workspaceID string, from, to time.Time) ([]*standup.Run, error) {
	out := make([]*standup.Run, 0)
	for _, run := range r.runs {
		if run.WorkspaceID != workspaceID || run.Status != standup.RunClosed {
			continue
		}
		if run.RunDate.Before(from) || run.RunDate.After(to) {
			continue
		}
		copied := *run
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunDate.After(out[j].RunDate) })
	return out, nil
}

func (r *fakeStandupRepo) DeleteRunsBefore(_ context.Context, workspaceID string, cutoff time.Time) (int64, error) {
	var removed int64
	for id, run := range r.runs {
		if run.WorkspaceID == workspaceID && run.CreatedAt.Before(cutoff) {
			delete(r.runs, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeStandupRepo) UpsertResponse(_ context.Context, resp *standup.Response) error {
	key := respKey(resp.RunID, resp.MemberID)
	if existing, ok := r.responses[key]; ok {
		resp.ID = existing.ID
	} else {
		r.nextID++
		resp.ID = r.nextID
	}
	copied := *resp
	r.responses[key] = &copied
	return nil
}

func (r *fakeStandupRepo) GetResponse(_ context.Context, runID, memberID int64) (*standup.Response, error) {
	resp, ok := r.responses[respKey(runID, memberID)]
	if !ok {
		return nil, idb.ErrResponseNotFound
	}
	copied := *resp
	return &copied, nil
}

func (r *fakeStandupRepo) FindActiveResponseByUser(_ context.Context, userID string) (*standup.Response, error) {
	var found *standup.Response
	for _, resp := range r.responses {
		if resp.Status != standup.StatusPending && resp.Status != standup.StatusInProgress {
			continue
		}
		run, ok := r.runs[resp.RunID]
		if !ok || run.Status != standup.RunOpen {
			continue
		}
		member, ok := r.roster.members[resp.MemberID]
		if !ok || member.UserID != userID {
			continue
		}
		if found == nil || resp.ID > found.ID {
			found = resp
		}
	}
	if found == nil {
		return nil, idb.ErrResponseNotFound
	}
	copied := *found
	return &copied, nil
}

func (r *fakeStandupRepo) SaveSession(_ context.Context, runID, memberID int64, state standup.SessionState) error {
	key := respKey(runID, memberID)
	resp, ok := r.responses[key]
	if !ok {
		r.nextID++
		resp = &standup.Response{ID: r.nextID, RunID: runID, MemberID: memberID}
		r.responses[key] = resp
	}
	if resp.Status.Terminal() {
		return nil
	}
	resp.Status = standup.StatusInProgress
	resp.Session = standup.SessionState{CurrentStep: state.CurrentStep, Answers: state.Answers.Clone()}
	return nil
}

func (r *fakeStandupRepo) SubmitResponse(_ context.Context, runID, memberID int64, answers standup.Answers, submittedAt time.Time) error {
	resp, ok := r.responses[respKey(runID, memberID)]
	if !ok {
		return idb.ErrResponseNotFound
	}
	resp.Status = standup.StatusSubmitted
	resp.Session.Answers = answers.Clone()
	resp.SubmittedAt.Time = submittedAt
	resp.SubmittedAt.Valid = true
	return nil
}

func (r *fakeStandupRepo) MarkMissing(_ context.Context, runID int64) (int64, error) {
	var touched int64
	for _, resp := range r.responses {
		if resp.RunID != runID {
			continue
		}
		if resp.Status == standup.StatusPending || resp.Status == standup.StatusInProgress {
			resp.Status = standup.StatusMissing
			touched++
		}
	}
	return touched, nil
}

func (r *fakeStandupRepo) ListResponses(_ context.Context, runID int64) ([]*standup.Response, error) {
	out := make([]*standup.Response, 0)
	for _, resp := range r.responses {
		if resp.RunID != runID {
			continue
		}
		copied := *resp
		if member, ok := r.roster.members[resp.MemberID]; ok {
			m := *member
			copied.Member = &m
		}
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		var a, b string
		if out[i].Member != nil {
			a = out[i].Member.DisplayName
		}
		if out[j].Member != nil {
			b = out[j].Member.DisplayName
		}
		return a < b
	})
	return out, nil
}

func (r *fakeStandupRepo) ListResponsesByStatus(ctx context.Context, runID int64, statuses ...standup.ResponseStatus) ([]*standup.Response, error) {
	all, err := r.ListResponses(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]*standup.Response, 0)
	for _, resp := range all {
		for _, status := range statuses {
			if resp.Status == status {
				out = append(out, resp)
				break
			}
		}
	}
	return out, nil
}

// --- delivery.Repository ---

type fakeDeliveryRepo struct {
	nextID int64
	jobs   map[int64]*delivery.Job
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{jobs: make(map[int64]*delivery.Job)}
}

func (r *fakeDeliveryRepo) Create(_ context.Context, job *delivery.Job) error {
	r.nextID++
	job.ID = r.nextID
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Unix(r.nextID, 0)
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeDeliveryRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*delivery.Job, error) {
	out := make([]*delivery.Job, 0)
	for _, job := range r.jobs {
		if job.Status != delivery.JobPending && job.Status != delivery.JobRetrying {
			continue
		}
		if job.NextAttemptAt.After(now) {
			continue
		}
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDeliveryRepo) Update(_ context.Context, job *delivery.Job) error {
	if _, ok := r.jobs[job.ID]; !ok {
		return idb.ErrJobNotFound
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeDeliveryRepo) ListByRun(_ context.Context, runID int64) ([]*delivery.Job, error) {
	out := make([]*delivery.Job, 0)
	for _, job := range r.jobs {
		if job.RunID == runID {
			copied := *job
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out, nil
}

func (r *fakeDeliveryRepo) ResetForResend(_ context.Context, runID int64, destination *delivery.Destination, now time.Time) (int64, error) {
	var touched int64
	for _, job := range r.jobs {
		if job.RunID != runID {
			continue
		}
		if destination != nil && job.Destination != *destination {
			continue
		}
		if job.Status != delivery.JobFailed && job.Status != delivery.JobRetrying {
			continue
		}
		job.Status = delivery.JobPending
		job.AttemptCount = 0
		job.NextAttemptAt = now
		job.LastError.Valid = false
		job.LastError.String = ""
		job.CompletedAt.Valid = false
		touched++
	}
	return touched, nil
}

func (r *fakeDeliveryRepo) DeleteJobsForRunsBefore(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, nil
}

// --- messenger.Client ---

type sentMessage struct {
	target string
	msg    messenger.Message
}

type fakeClient struct {
	dms      []sentMessage
	channels []sentMessage
	failFor  map[string]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{failFor: make(map[string]error)}
}

func (c *fakeClient) SendDirectMessage(_ context.Context, userID string, msg messenger.Message) error {
	if err, ok := c.failFor[userID]; ok {
		return err
	}
	c.dms = append(c.dms, sentMessage{target: userID, msg: msg})
	return nil
}

func (c *fakeClient) SendChannelMessage(_ context.Context, channelID string, msg messenger.Message) error {
	c.channels = append(c.channels, sentMessage{target: channelID, msg: msg})
	return nil
}

func (c *fakeClient) dmsTo(userID string) []sentMessage {
	out := make([]sentMessage, 0)
	for _, m := range c.dms {
		if m.target == userID {
			out = append(out, m)
		}
	}
	return out
}

// --- SessionCache ---

type fakeCache struct {
	sessions map[string]*standup.Session
}

func newFakeCache() *fakeCache {
	return &fakeCache{sessions: make(map[string]*standup.Session)}
}

func (c *fakeCache) Get(_ context.Context, userID string) (*standup.Session, bool) {
	s, ok := c.sessions[userID]
	return s, ok
}

func (c *fakeCache) Put(_ context.Context, userID string, session *standup.Session) {
	c.sessions[userID] = session
}

func (c *fakeCache) Delete(_ context.Context, userID string) {
	delete(c.sessions, userID)
}

// --- delivery.Publisher ---

type fakePublisher struct {
	calls int
	runs  []int64
	url   string
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, run *standup.Run, _ []*standup.Response) (string, error) {
	p.calls++
	p.runs = append(p.runs, run.ID)
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}
