package chat_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/kevingma/slack-clone-v6/internal/model/chat"
	personamodel "github.com/kevingma/slack-clone-v6/internal/model/persona"
	"github.com/kevingma/slack-clone-v6/internal/service/ai"
	"github.com/kevingma/slack-clone-v6/internal/service/ai/aitest"
	chat "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/internal/service/persona"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

const personaMarker = "Summarize in 2-3 sentences"

type fakeUploader struct {
	err error
}

func (f fakeUploader) Put(_ context.Context, filename string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return "https://files.test/" + filename, nil
}

type harness struct {
	store *store.MemoryStore
	svc   *chat.Service
	model *aitest.ChatModel
	botID int64
	alice chatmodel.User
	bob   chatmodel.User
	carol chatmodel.User
	ws    chatmodel.Workspace
}

func scriptedModel() *aitest.ChatModel {
	return &aitest.ChatModel{
		Respond: func(system, user string) string {
			if strings.Contains(system, personaMarker) {
				return "Bob is terse and upbeat."
			}
			return "  on it  "
		},
	}
}

// newHarness builds the service over a memory store. alice owns workspace
// "acme", bob is a member and carol is registered but outside it.
func newHarness(t *testing.T, m *aitest.ChatModel, uploader fakeUploader) *harness {
	t.Helper()
	ctx := context.Background()

	var cm model.ChatModel
	if m != nil {
		cm = m
	}
	aiSvc, err := ai.NewService(ctx, cm, ai.Config{}, zerolog.Nop())
	require.NoError(t, err)

	st := store.NewMemoryStore()
	personas := persona.NewService(st, aiSvc, zerolog.Nop())
	svc := chat.NewService(st, personas, aiSvc, uploader, chat.Config{}, zerolog.Nop())

	botID, err := svc.EnsureBotUser(ctx)
	require.NoError(t, err)

	h := &harness{store: st, svc: svc, model: m, botID: botID}
	h.alice, err = svc.RegisterUser(ctx, "alice@example.com", "alice")
	require.NoError(t, err)
	h.bob, err = svc.RegisterUser(ctx, "bob@example.com", "bob")
	require.NoError(t, err)
	h.carol, err = svc.RegisterUser(ctx, "carol@example.com", "carol")
	require.NoError(t, err)

	h.ws, err = svc.CreateWorkspace(ctx, h.alice.ID, "acme")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, h.alice.ID, h.ws.ID, chat.AddMemberInput{UserID: h.bob.ID})
	require.NoError(t, err)
	return h
}

// post sends to channelID, or to acme's #general when channelID is nil.
func (h *harness) post(t *testing.T, authorID int64, channelID *int64, content string) chatmodel.Message {
	t.Helper()
	in := chat.PostMessageInput{AuthorID: authorID, ChannelID: channelID, Content: content}
	if channelID == nil {
		in.WorkspaceID = h.ws.ID
	}
	msg, err := h.svc.PostMessage(context.Background(), in)
	require.NoError(t, err)
	return msg
}

func (h *harness) general(t *testing.T) chatmodel.Channel {
	t.Helper()
	ch, err := h.svc.ResolveOrDefaultChannel(context.Background(), h.alice.ID, h.ws.ID, nil)
	require.NoError(t, err)
	return ch
}

func (h *harness) messages(t *testing.T, channelID int64) []chat.MessageView {
	t.Helper()
	views, err := h.svc.ListMessages(context.Background(), h.alice.ID, channelID, 0)
	require.NoError(t, err)
	return views
}

func TestEnsureBotUserIsStable(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})

	again, err := h.svc.EnsureBotUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h.botID, again)

	bots, err := h.store.FindUsersByDisplayName(context.Background(), "persona-bot")
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.True(t, bots[0].IsBot)
}

func TestPostMessageWithoutMention(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})

	msg := h.post(t, h.alice.ID, nil, "hello team")

	general := h.general(t)
	assert.Equal(t, general.ID, msg.ChannelID)

	views := h.messages(t, general.ID)
	require.Len(t, views, 1)
	assert.Equal(t, "hello team", views[0].Content)
	assert.Equal(t, h.alice.ID, views[0].Author.ID)
	assert.Equal(t, "alice", views[0].Author.DisplayName)
	assert.Empty(t, h.model.Calls())
}

func TestPostMessageMentionGeneratesPersonaAndReply(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	ctx := context.Background()

	random, err := h.svc.CreateChannel(ctx, h.bob.ID, h.ws.ID, "#Random")
	require.NoError(t, err)
	assert.Equal(t, "random", random.Name)
	for _, content := range []string{"shipping now", "lgtm", "on it"} {
		h.post(t, h.bob.ID, &random.ID, content)
	}

	msg := h.post(t, h.alice.ID, nil, "@bob check this out")

	bob, err := h.store.GetUser(ctx, h.bob.ID)
	require.NoError(t, err)
	require.True(t, bob.HasPersona())
	assert.Equal(t, "Bob is terse and upbeat.", *bob.Persona)

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views, 2)
	assert.Equal(t, msg.ID, views[0].ID)
	reply := views[1]
	assert.Greater(t, reply.ID, msg.ID)
	assert.Equal(t, h.botID, reply.UserID)
	assert.True(t, reply.Author.IsBot)
	assert.Equal(t, "on it", reply.Content)

	calls := h.model.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].System, personaMarker)
	assert.Contains(t, calls[0].User, "shipping now")
	assert.Contains(t, calls[0].User, "lgtm")
	assert.Equal(t, "Bob is terse and upbeat.", calls[1].System)
	assert.Contains(t, calls[1].User, "alice: @bob check this out")
	assert.Contains(t, calls[1].User, "User @bob just mentioned me saying:")
}

func TestMentionOfUnknownNameIsSkipped(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})

	msg := h.post(t, h.alice.ID, nil, "@nobody are you there?")

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views, 1)
	assert.Empty(t, h.model.Calls())
}

func TestCachedPersonaIsNotRegenerated(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	ctx := context.Background()
	require.NoError(t, h.store.SetPersona(ctx, h.bob.ID, "Speaks only in haiku."))

	h.post(t, h.alice.ID, nil, "@bob first")
	h.post(t, h.alice.ID, nil, "@bob second")

	assert.Zero(t, h.model.CountSystem(personaMarker))
	assert.Equal(t, 2, h.model.CountSystem("Speaks only in haiku."))

	bob, err := h.store.GetUser(ctx, h.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Speaks only in haiku.", *bob.Persona)
}

func TestDuplicateMentionsReplyOnce(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})

	msg := h.post(t, h.alice.ID, nil, "@bob @bob @bob wake up")

	views := h.messages(t, msg.ChannelID)
	assert.Len(t, views, 2)
}

func TestMultipleMentionsReplyInOrder(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	ctx := context.Background()
	_, err := h.svc.AddMember(ctx, h.alice.ID, h.ws.ID, chat.AddMemberInput{Email: "carol@example.com"})
	require.NoError(t, err)

	msg := h.post(t, h.bob.ID, nil, "@alice and @carol please review")

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views, 3)
	assert.Equal(t, h.botID, views[1].UserID)
	assert.Equal(t, h.botID, views[2].UserID)
	// Neither has any history yet, so both personas default without a call.
	assert.Zero(t, h.model.CountSystem(personaMarker))
	assert.Len(t, h.model.Calls(), 2)
	assert.Equal(t, 2, h.model.CountSystem(personamodel.DefaultDescriptor))
}

func TestGenerationUnreachableFallsBack(t *testing.T) {
	h := newHarness(t, &aitest.ChatModel{Err: errors.New("connection refused")}, fakeUploader{})

	msg := h.post(t, h.alice.ID, nil, "@bob check this out")

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views, 2)
	assert.Equal(t, ai.FallbackReply, views[1].Content)
	assert.Equal(t, h.botID, views[1].UserID)
}

func TestWithoutModelRepliesWithFallback(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	msg := h.post(t, h.alice.ID, nil, "@bob ping")

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views, 2)
	assert.Equal(t, ai.FallbackReply, views[1].Content)

	bob, err := h.store.GetUser(ctx, h.bob.ID)
	require.NoError(t, err)
	require.True(t, bob.HasPersona())
	assert.Equal(t, personamodel.DefaultDescriptor, *bob.Persona)
}

func TestMentionPipelineSurvivesCanceledRequest(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	general := h.general(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.svc.PostMessage(ctx, chat.PostMessageInput{
		AuthorID:  h.alice.ID,
		ChannelID: &general.ID,
		Content:   "@bob still there?",
	})
	require.NoError(t, err)

	views := h.messages(t, general.ID)
	require.Len(t, views, 2)
	assert.Equal(t, "on it", views[1].Content)
}

func TestMessageIDsIncrease(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	general := h.general(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(author int64) {
			defer wg.Done()
			_, err := h.svc.PostMessage(context.Background(), chat.PostMessageInput{
				AuthorID:  author,
				ChannelID: &general.ID,
				Content:   "tick",
			})
			assert.NoError(t, err)
		}([]int64{h.alice.ID, h.bob.ID}[i%2])
	}
	wg.Wait()

	views := h.messages(t, general.ID)
	require.Len(t, views, 20)
	for i := 1; i < len(views); i++ {
		assert.Greater(t, views[i].ID, views[i-1].ID)
	}

	after, err := h.svc.ListMessages(context.Background(), h.alice.ID, general.ID, views[9].ID)
	require.NoError(t, err)
	require.Len(t, after, 10)
	assert.Equal(t, views[10].ID, after[0].ID)
}

func TestPostMessageValidation(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()
	missing := int64(9999)

	tests := []struct {
		name string
		in   chat.PostMessageInput
		want error
	}{
		{"anonymous", chat.PostMessageInput{WorkspaceID: h.ws.ID, Content: "hi"}, chat.ErrUnauthenticated},
		{"blank", chat.PostMessageInput{AuthorID: h.alice.ID, WorkspaceID: h.ws.ID, Content: "   "}, chat.ErrInvalidInput},
		{"no target", chat.PostMessageInput{AuthorID: h.alice.ID, Content: "hi"}, chat.ErrInvalidInput},
		{"unknown channel", chat.PostMessageInput{AuthorID: h.alice.ID, ChannelID: &missing, Content: "hi"}, chat.ErrNotFound},
		{"unknown workspace", chat.PostMessageInput{AuthorID: h.alice.ID, WorkspaceID: 9999, Content: "hi"}, chat.ErrNotFound},
		{"outsider", chat.PostMessageInput{AuthorID: h.carol.ID, WorkspaceID: h.ws.ID, Content: "hi"}, chat.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.PostMessage(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPostMessageChannelMustBelongToWorkspace(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	other, err := h.svc.CreateWorkspace(ctx, h.alice.ID, "globex")
	require.NoError(t, err)
	_, err = h.svc.AddMember(ctx, h.alice.ID, other.ID, chat.AddMemberInput{UserID: h.bob.ID})
	require.NoError(t, err)
	foreign, err := h.svc.CreateChannel(ctx, h.alice.ID, other.ID, "ops")
	require.NoError(t, err)
	dm, _, err := h.svc.OpenDM(ctx, h.alice.ID, chat.OpenDMInput{OtherUserID: h.bob.ID})
	require.NoError(t, err)

	for _, target := range []chatmodel.Channel{foreign, dm} {
		_, err := h.svc.PostMessage(ctx, chat.PostMessageInput{
			AuthorID:    h.bob.ID,
			WorkspaceID: h.ws.ID,
			ChannelID:   &target.ID,
			Content:     "wrong door",
		})
		assert.ErrorIs(t, err, chat.ErrInvalidInput, "channel %s", target.Name)

		views, err := h.svc.ListMessages(ctx, h.bob.ID, target.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, views)
	}

	msg, err := h.svc.PostMessage(ctx, chat.PostMessageInput{
		AuthorID:    h.bob.ID,
		WorkspaceID: other.ID,
		ChannelID:   &foreign.ID,
		Content:     "right door",
	})
	require.NoError(t, err)
	assert.Equal(t, foreign.ID, msg.ChannelID)
}

func TestResolveOrDefaultChannelIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := h.svc.ResolveOrDefaultChannel(ctx, h.bob.ID, h.ws.ID, nil)
			assert.NoError(t, err)
			ids[i] = ch.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	channels, err := h.svc.ListChannels(ctx, h.alice.ID, h.ws.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, chatmodel.GeneralChannelName, channels[0].Name)
}

func TestCreateChannelRules(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	_, err := h.svc.CreateChannel(ctx, h.alice.ID, h.ws.ID, "design")
	require.NoError(t, err)

	_, err = h.svc.CreateChannel(ctx, h.bob.ID, h.ws.ID, "#Design")
	assert.ErrorIs(t, err, chat.ErrConflict)
	_, err = h.svc.CreateChannel(ctx, h.alice.ID, h.ws.ID, "thread-12")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, err = h.svc.CreateChannel(ctx, h.alice.ID, h.ws.ID, " # ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, err = h.svc.CreateChannel(ctx, h.carol.ID, h.ws.ID, "lobby")
	assert.ErrorIs(t, err, chat.ErrForbidden)
}

func TestDeleteChannel(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	general := h.general(t)
	err := h.svc.DeleteChannel(ctx, h.alice.ID, general.ID)
	assert.ErrorIs(t, err, chat.ErrProtectedChannel)

	scratch, err := h.svc.CreateChannel(ctx, h.alice.ID, h.ws.ID, "scratch")
	require.NoError(t, err)
	msg := h.post(t, h.alice.ID, &scratch.ID, "temporary")
	thread, _, err := h.svc.OpenThread(ctx, h.alice.ID, msg.ID, h.ws.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, h.svc.DeleteChannel(ctx, h.carol.ID, scratch.ID), chat.ErrForbidden)
	require.NoError(t, h.svc.DeleteChannel(ctx, h.bob.ID, scratch.ID))

	_, err = h.svc.ListMessages(ctx, h.alice.ID, scratch.ID, 0)
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, err = h.svc.ListMessages(ctx, h.alice.ID, thread.ID, 0)
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, _, err = h.svc.AddReaction(ctx, h.alice.ID, msg.ID, "👍")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestReactions(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()
	msg := h.post(t, h.alice.ID, nil, "ship it")

	first, created, err := h.svc.AddReaction(ctx, h.bob.ID, msg.ID, "🚀")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := h.svc.AddReaction(ctx, h.bob.ID, msg.ID, "🚀")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views[0].Reactions, 1)
	assert.Equal(t, "bob", views[0].Reactions[0].User.DisplayName)

	err = h.svc.RemoveReaction(ctx, h.alice.ID, msg.ID, "🚀")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	assert.Len(t, h.messages(t, msg.ChannelID)[0].Reactions, 1)

	require.NoError(t, h.svc.RemoveReaction(ctx, h.bob.ID, msg.ID, "🚀"))
	assert.Empty(t, h.messages(t, msg.ChannelID)[0].Reactions)

	_, _, err = h.svc.AddReaction(ctx, h.bob.ID, msg.ID, " ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, _, err = h.svc.AddReaction(ctx, h.bob.ID, 9999, "🚀")
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, _, err = h.svc.AddReaction(ctx, h.carol.ID, msg.ID, "🚀")
	assert.ErrorIs(t, err, chat.ErrForbidden)
}

func TestOpenThread(t *testing.T) {
	h := newHarness(t, scriptedModel(), fakeUploader{})
	ctx := context.Background()
	parent := h.post(t, h.alice.ID, nil, "release notes")

	thread, created, err := h.svc.OpenThread(ctx, h.bob.ID, parent.ID, h.ws.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, thread.IsThread)
	assert.Equal(t, chatmodel.ThreadChannelName(parent.ID), thread.Name)
	require.NotNil(t, thread.ParentMessageID)
	assert.Equal(t, parent.ID, *thread.ParentMessageID)

	reopened, created, err := h.svc.OpenThread(ctx, h.alice.ID, parent.ID, h.ws.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, thread.ID, reopened.ID)

	reply := h.post(t, h.bob.ID, &thread.ID, "@alice looks good")
	views := h.messages(t, thread.ID)
	require.Len(t, views, 2)
	assert.Equal(t, reply.ID, views[0].ID)
	assert.Equal(t, h.botID, views[1].UserID)

	_, _, err = h.svc.OpenThread(ctx, h.alice.ID, reply.ID, h.ws.ID)
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, _, err = h.svc.OpenThread(ctx, h.alice.ID, 9999, h.ws.ID)
	assert.ErrorIs(t, err, chat.ErrNotFound)
	_, _, err = h.svc.OpenThread(ctx, h.carol.ID, parent.ID, h.ws.ID)
	assert.ErrorIs(t, err, chat.ErrForbidden)

	other, err := h.svc.CreateWorkspace(ctx, h.alice.ID, "other")
	require.NoError(t, err)
	_, _, err = h.svc.OpenThread(ctx, h.alice.ID, parent.ID, other.ID)
	assert.ErrorIs(t, err, chat.ErrInvalidInput)

	channels, err := h.svc.ListChannels(ctx, h.alice.ID, h.ws.ID)
	require.NoError(t, err)
	assert.Len(t, channels, 1, "threads are not listed as workspace channels")
}

func TestDirectMessages(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	dm, created, err := h.svc.OpenDM(ctx, h.alice.ID, chat.OpenDMInput{OtherUserEmail: "CAROL@example.com"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, dm.IsDM)
	assert.Equal(t, chatmodel.DMChannelName(h.alice.ID, h.carol.ID), dm.Name)

	same, created, err := h.svc.OpenDM(ctx, h.carol.ID, chat.OpenDMInput{OtherUserID: h.alice.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dm.ID, same.ID)

	psst := h.post(t, h.carol.ID, &dm.ID, "psst")
	_, err = h.svc.ListMessages(ctx, h.bob.ID, dm.ID, 0)
	assert.ErrorIs(t, err, chat.ErrForbidden)
	_, _, err = h.svc.OpenThread(ctx, h.alice.ID, psst.ID, h.ws.ID)
	assert.ErrorIs(t, err, chat.ErrInvalidInput)

	dms, err := h.svc.ListDMs(ctx, h.carol.ID)
	require.NoError(t, err)
	require.Len(t, dms, 1)
	assert.Equal(t, dm.ID, dms[0].ID)

	assert.ErrorIs(t, h.svc.DeleteChannel(ctx, h.alice.ID, dm.ID), chat.ErrForbidden)

	_, _, err = h.svc.OpenDM(ctx, h.alice.ID, chat.OpenDMInput{OtherUserID: h.alice.ID})
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, _, err = h.svc.OpenDM(ctx, h.alice.ID, chat.OpenDMInput{OtherUserID: h.botID})
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, _, err = h.svc.OpenDM(ctx, h.alice.ID, chat.OpenDMInput{OtherUserEmail: "nobody@example.com"})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestSearch(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	older := h.post(t, h.alice.ID, nil, "Deploy scheduled")
	newer := h.post(t, h.bob.ID, nil, "deploy done")
	h.post(t, h.bob.ID, nil, "unrelated")
	dm, _, err := h.svc.OpenDM(ctx, h.carol.ID, chat.OpenDMInput{OtherUserID: h.bob.ID})
	require.NoError(t, err)
	secret := h.post(t, h.carol.ID, &dm.ID, "deploy secrets")

	results, err := h.svc.Search(ctx, h.alice.ID, "DEPLOY")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newer.ID, results[0].ID)
	assert.Equal(t, older.ID, results[1].ID)
	assert.Equal(t, chatmodel.GeneralChannelName, results[0].Channel.Name)
	assert.Equal(t, "bob", results[0].Author.DisplayName)

	results, err = h.svc.Search(ctx, h.bob.ID, "deploy")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, secret.ID, results[0].ID)

	results, err = h.svc.Search(ctx, h.carol.ID, "scheduled")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = h.svc.Search(ctx, h.alice.ID, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUploadAttachment(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()
	msg := h.post(t, h.alice.ID, nil, "see attached")

	a, err := h.svc.UploadAttachment(ctx, h.alice.ID, msg.ID, "../../plan.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "plan.pdf", a.Filename)
	assert.Equal(t, "https://files.test/plan.pdf", a.URL)

	views := h.messages(t, msg.ChannelID)
	require.Len(t, views[0].Attachments, 1)
	assert.Equal(t, a.ID, views[0].Attachments[0].ID)

	_, err = h.svc.UploadAttachment(ctx, h.carol.ID, msg.ID, "x.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, chat.ErrForbidden)
	_, err = h.svc.UploadAttachment(ctx, h.alice.ID, 9999, "x.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestPostMessageWithFailedAttachmentKeepsMessage(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{err: errors.New("disk full")})
	general := h.general(t)

	msg, _, err := h.svc.PostMessageWithAttachment(context.Background(), chat.PostMessageInput{
		AuthorID:  h.alice.ID,
		ChannelID: &general.ID,
	}, "photo.png", strings.NewReader("png"))
	require.ErrorIs(t, err, chat.ErrAttachmentUpload)
	require.NotZero(t, msg.ID)

	views := h.messages(t, general.ID)
	require.Len(t, views, 1)
	assert.Equal(t, msg.ID, views[0].ID)
	assert.Empty(t, views[0].Attachments)
}

func TestWorkspaceMembership(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	_, err := h.svc.AddMember(ctx, h.bob.ID, h.ws.ID, chat.AddMemberInput{UserID: h.carol.ID})
	assert.ErrorIs(t, err, chat.ErrForbidden)

	member, err := h.svc.AddMember(ctx, h.alice.ID, h.ws.ID, chat.AddMemberInput{Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, chatmodel.RoleMember, member.Role)

	again, err := h.svc.AddMember(ctx, h.alice.ID, h.ws.ID, chat.AddMemberInput{UserID: h.carol.ID})
	require.NoError(t, err)
	assert.Equal(t, member, again)

	workspaces, err := h.svc.ListWorkspaces(ctx, h.carol.ID)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "acme", workspaces[0].Name)

	_, err = h.svc.CreateWorkspace(ctx, h.alice.ID, "  ")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
}

func TestUsers(t *testing.T) {
	h := newHarness(t, nil, fakeUploader{})
	ctx := context.Background()

	_, err := h.svc.RegisterUser(ctx, "ALICE@example.com", "alice2")
	assert.ErrorIs(t, err, chat.ErrConflict)
	_, err = h.svc.RegisterUser(ctx, "dave@example.com", "bob")
	assert.ErrorIs(t, err, chat.ErrConflict)
	_, err = h.svc.RegisterUser(ctx, "not-an-email", "dave")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)
	_, err = h.svc.RegisterUser(ctx, "dave@example.com", "dave smith")
	assert.ErrorIs(t, err, chat.ErrInvalidInput)

	_, err = h.svc.UpdateDisplayName(ctx, h.alice.ID, "bob")
	assert.ErrorIs(t, err, chat.ErrConflict)
	_, err = h.svc.UpdateDisplayName(ctx, h.alice.ID, "persona-bot")
	assert.ErrorIs(t, err, chat.ErrInvalidInput, "the bot name cannot be mentioned")

	renamed, err := h.svc.UpdateDisplayName(ctx, h.alice.ID, "alice_w")
	require.NoError(t, err)
	assert.Equal(t, "alice_w", renamed.DisplayName)

	same, err := h.svc.UpdateDisplayName(ctx, h.alice.ID, "alice_w")
	require.NoError(t, err)
	assert.Equal(t, renamed.ID, same.ID)
}
