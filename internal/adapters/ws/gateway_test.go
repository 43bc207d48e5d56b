package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emberlink/ember/internal/adapters/ws"
	"github.com/emberlink/ember/internal/domain/match"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedEngine records calls and returns scripted errors.
type scriptedEngine struct {
	mu           sync.Mutex
	enqueueErr   error
	answerErr    error
	enqueues     []string
	dequeues     []string
	leaves       []string
	answers      []model.CardAnswer
	disconnects  []string
	reconnects   []string
	cardRequests []string
}

func (e *scriptedEngine) Enqueue(_ context.Context, userID string, _ []model.Answer, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueues = append(e.enqueues, userID)
	return e.enqueueErr
}

func (e *scriptedEngine) Dequeue(_ context.Context, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dequeues = append(e.dequeues, userID)
	return true
}

func (e *scriptedEngine) Leave(_ context.Context, userID, matchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaves = append(e.leaves, userID+"/"+matchID)
	return nil
}

func (e *scriptedEngine) RequestCards(_ context.Context, userID, matchID string) (*match.DeliverPayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cardRequests = append(e.cardRequests, userID+"/"+matchID)
	if matchID == "missing" {
		return nil, match.ErrSessionNotFound
	}
	return &match.DeliverPayload{MatchID: matchID}, nil
}

func (e *scriptedEngine) SubmitAnswer(_ context.Context, ans model.CardAnswer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.answers = append(e.answers, ans)
	return e.answerErr
}

func (e *scriptedEngine) Disconnect(_ context.Context, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnects = append(e.disconnects, userID)
}

func (e *scriptedEngine) Reconnect(_ context.Context, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconnects = append(e.reconnects, userID)
	return false
}

func (e *scriptedEngine) calls(list func(*scriptedEngine) []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), list(e)...)
}

func dial(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?userId=" + userID
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func readEnvelope(t *testing.T, c *websocket.Conn) ws.Envelope {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env ws.Envelope
	if err := c.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func sendEvent(t *testing.T, c *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := c.WriteJSON(ws.Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func eventually(check func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return check()
}

func TestGateway(t *testing.T) {
	Convey("Given a gateway over a scripted engine", t, func() {
		engine := &scriptedEngine{}
		gw := ws.New(engine)
		mux := http.NewServeMux()
		mux.Handle("/ws", gw)
		server := httptest.NewServer(mux)
		defer server.Close()

		Convey("A connection without a userId is refused", func() {
			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Connecting resumes any live session", func() {
			c := dial(t, server, "u1")
			defer c.Close()

			So(eventually(func() bool {
				return len(engine.calls(func(e *scriptedEngine) []string { return e.reconnects })) == 1
			}), ShouldBeTrue)
		})

		Convey("match:submit_answers reaches the engine", func() {
			c := dial(t, server, "u1")
			defer c.Close()

			sendEvent(t, c, model.EventMatchSubmitAnswers, map[string]interface{}{
				"answers":              []model.Answer{{QuestionID: "q1", OptionID: "a"}},
				"minimumCommonAnswers": 2,
			})

			So(eventually(func() bool {
				return len(engine.calls(func(e *scriptedEngine) []string { return e.enqueues })) == 1
			}), ShouldBeTrue)
		})

		Convey("A blocked precondition comes back as match:blocked", func() {
			engine.enqueueErr = match.ErrUnverified
			c := dial(t, server, "u1")
			defer c.Close()

			sendEvent(t, c, model.EventMatchSubmitAnswers, map[string]interface{}{
				"answers": []model.Answer{}, "minimumCommonAnswers": 1,
			})

			env := readEnvelope(t, c)
			So(env.Event, ShouldEqual, model.EventMatchBlocked)
			So(string(env.Data), ShouldContainSubstring, "UNVERIFIED")
		})

		Convey("A validation failure comes back as match:error", func() {
			engine.enqueueErr = match.ErrInvalidSubmission
			c := dial(t, server, "u1")
			defer c.Close()

			sendEvent(t, c, model.EventMatchSubmitAnswers, map[string]interface{}{
				"answers": []model.Answer{}, "minimumCommonAnswers": 0,
			})

			env := readEnvelope(t, c)
			So(env.Event, ShouldEqual, model.EventMatchError)
			So(string(env.Data), ShouldContainSubstring, "INVALID_SUBMISSION")
		})

		Convey("cards:request for an unknown match yields cards:error", func() {
			c := dial(t, server, "u1")
			defer c.Close()

			sendEvent(t, c, model.EventCardsRequest, map[string]string{"matchId": "missing"})

			env := readEnvelope(t, c)
			So(env.Event, ShouldEqual, model.EventCardsError)
			So(string(env.Data), ShouldContainSubstring, "SESSION_NOT_FOUND")
		})

		Convey("card:answer carries the connection's identity", func() {
			c := dial(t, server, "u7")
			defer c.Close()

			sendEvent(t, c, model.EventCardAnswer, map[string]interface{}{
				"matchId": "m1", "cardId": "c1", "selectedOptionIndex": 2,
			})

			So(eventually(func() bool {
				engine.mu.Lock()
				defer engine.mu.Unlock()
				return len(engine.answers) == 1
			}), ShouldBeTrue)

			engine.mu.Lock()
			ans := engine.answers[0]
			engine.mu.Unlock()
			So(ans.UserID, ShouldEqual, "u7")
			So(ans.MatchID, ShouldEqual, "m1")
			So(ans.OptionIndex, ShouldEqual, 2)
		})

		Convey("match:leave dequeues and leaves the named session", func() {
			c := dial(t, server, "u1")
			defer c.Close()

			sendEvent(t, c, model.EventMatchLeave, map[string]string{"matchId": "m9"})

			So(eventually(func() bool {
				return len(engine.calls(func(e *scriptedEngine) []string { return e.leaves })) == 1
			}), ShouldBeTrue)
			So(engine.calls(func(e *scriptedEngine) []string { return e.leaves })[0], ShouldEqual, "u1/m9")
			So(engine.calls(func(e *scriptedEngine) []string { return e.dequeues })[0], ShouldEqual, "u1")
		})

		Convey("match:leave without a matchId still reaches the engine", func() {
			c := dial(t, server, "u2")
			defer c.Close()

			sendEvent(t, c, model.EventMatchLeave, map[string]string{})

			So(eventually(func() bool {
				return len(engine.calls(func(e *scriptedEngine) []string { return e.leaves })) == 1
			}), ShouldBeTrue)
			So(engine.calls(func(e *scriptedEngine) []string { return e.leaves })[0], ShouldEqual, "u2/")
		})

		Convey("Send pushes a notice to the live connection", func() {
			c := dial(t, server, "u1")
			defer c.Close()

			So(eventually(func() bool { return gw.Connections() == 1 }), ShouldBeTrue)

			ok := gw.Send(context.Background(), model.Notice{
				UserID:  "u1",
				Event:   model.EventMatchFound,
				Payload: map[string]string{"matchId": "m1"},
			})
			So(ok, ShouldBeTrue)

			env := readEnvelope(t, c)
			So(env.Event, ShouldEqual, model.EventMatchFound)
			So(string(env.Data), ShouldContainSubstring, "m1")
		})

		Convey("Send reports false for an offline user", func() {
			ok := gw.Send(context.Background(), model.Notice{UserID: "ghost", Event: "x"})
			So(ok, ShouldBeFalse)
		})

		Convey("Closing the socket tells the engine", func() {
			c := dial(t, server, "u1")
			c.Close()

			So(eventually(func() bool {
				return len(engine.calls(func(e *scriptedEngine) []string { return e.disconnects })) == 1
			}), ShouldBeTrue)
		})
	})
}
