// Package server wires the proxy's HTTP surface: the health and debug
// management endpoints plus the main request pipeline.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/patsnapops/piam-s3-proxy/internal/config"
	"github.com/patsnapops/piam-s3-proxy/internal/forward"
	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
	"github.com/patsnapops/piam-s3-proxy/internal/identity"
	"github.com/patsnapops/piam-s3-proxy/internal/policy"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
	"github.com/patsnapops/piam-s3-proxy/internal/rewrite"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
	"github.com/patsnapops/piam-s3-proxy/internal/signer"
	"github.com/patsnapops/piam-s3-proxy/internal/state"
)

// regionHintHeader carries a caller-supplied region disambiguator,
// consulted only by UniKeyResolver when a bucket name is ambiguous
// across regions.
const regionHintHeader = "X-Piam-Region-Hint"

// forwarder is the seam between the pipeline and the upstream
// transport, so tests can substitute a fake instead of hitting a real
// cloud endpoint.
type forwarder interface {
	Forward(req *http.Request) (*http.Response, error)
}

// Server holds everything the request pipeline needs per request.
type Server struct {
	cfg      *config.Config
	hosts    *hostset.Set
	state    *state.Manager
	resolver identity.Resolver
	engine   policy.Engine
	forward  forwarder
	now      func() time.Time
}

// New builds a Server. resolver and engine are passed in already
// configured for the deploy's identity mode; the caller
// (cmd/s3proxy) is where that build-time choice is made.
func New(cfg *config.Config, hosts *hostset.Set, mgr *state.Manager, resolver identity.Resolver, engine policy.Engine) *Server {
	return &Server{
		cfg:      cfg,
		hosts:    hosts,
		state:    mgr,
		resolver: resolver,
		engine:   engine,
		forward:  forward.New(),
		now:      time.Now,
	}
}

// Router builds the top-level gorilla/mux router, wrapped in a
// recovery handler so a panic anywhere in the pipeline becomes a 500
// instead of killing the process.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/_piam_manage_api", s.handleManage).Methods(http.MethodPut)
	r.PathPrefix("/{path:.*}").HandlerFunc(s.handlePipeline)

	return handlers.RecoveryHandler()(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleManage toggles the dynamic debug log level: `?debug=on` raises
// logrus to Debug, `?debug=off` restores Info, anything else is a 400
// with body "invalid request".
func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("debug") {
	case "on":
		logrus.SetLevel(logrus.DebugLevel)
		w.WriteHeader(http.StatusOK)
	case "off":
		logrus.SetLevel(logrus.InfoLevel)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid request"))
	}
}

// handlePipeline is the core request path: normalize →
// parse → resolve identity → select policy → apply effects → resolve
// endpoint → re-sign → forward.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"uri":    r.RequestURI,
		"host":   r.Host,
	}).Debug("inbound request")

	if err := rewrite.AdaptPathStyle(r, mux.Vars(r)["path"], s.hosts); err != nil {
		s.writeError(w, err)
		return
	}

	in, r, err := s3input.Parse(r, s.hosts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	accessKeyID, err := extractAccessKeyID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	snapshot := s.state.Load()

	target, err := s.resolver.Resolve(accessKeyID, in, r.Header.Get(regionHintHeader))
	if err != nil {
		s.writeError(w, err)
		return
	}

	baseAccessKey, _, splitErr := snapshot.IAM.SplitBaseAndAccountCode(accessKeyID)
	if splitErr != nil {
		baseAccessKey = accessKeyID
	}
	user, err := s.engine.FindUserByBaseAccessKey(baseAccessKey)
	if err != nil {
		s.writeError(w, err)
		return
	}
	groups, err := s.engine.FindGroupsByUser(user)
	if err != nil {
		s.writeError(w, err)
		return
	}

	found, err := s.engine.FindPolicies(policy.FilterParams{
		Account: target.Account,
		Region:  target.Region,
		Groups:  groups,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	conditionEffects, err := policy.FindConditionEffects(found.Condition, policy.ConditionCtx{SourceAddr: r.RemoteAddr})
	if err != nil {
		s.writeError(w, err)
		return
	}
	r, err = policy.ApplyEffects(r, conditionEffects)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inputEffects, err := policy.FindInputEffects(found.UserInput, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	r, err = policy.ApplyEffects(r, inputEffects)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := rewrite.SetActualHost(r, s.hosts, target.Region); err != nil {
		s.writeError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"account": target.Account.Code,
		"region":  target.Region,
		"service": "s3",
	}).Debug("signing upstream request")

	signCtx := r.Context()
	if err := signer.Sign(signCtx, r, target.Account.AccessKey, target.Account.SecretKey, target.Region, s.now()); err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.forward.Forward(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer resp.Body.Close()

	copyResponse(w, resp)
}

func extractAccessKeyID(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", proxyerr.New(proxyerr.AccessDenied, "request carries no Authorization header")
	}
	return parseCredentialAccessKeyID(auth)
}

// parseCredentialAccessKeyID extracts the access key ID from a SigV4
// Authorization header of the form:
//
//	AWS4-HMAC-SHA256 Credential=<accessKeyID>/<date>/<region>/s3/aws4_request, ...
func parseCredentialAccessKeyID(auth string) (string, error) {
	const marker = "Credential="
	idx := indexOf(auth, marker)
	if idx < 0 {
		return "", proxyerr.New(proxyerr.MalformedProtocol, "Authorization header has no Credential component")
	}
	rest := auth[idx+len(marker):]
	end := indexOf(rest, "/")
	if end < 0 {
		return "", proxyerr.New(proxyerr.MalformedProtocol, "Authorization header Credential has no scope")
	}
	return rest[:end], nil
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	pe, ok := proxyerr.As(err)
	if !ok {
		pe = proxyerr.Wrap(proxyerr.OtherInternal, err, "unclassified pipeline error")
	}
	logrus.WithError(pe).WithField("kind", pe.Kind).Warn("request failed")
	http.Error(w, fmt.Sprintf("%s: %s", pe.Kind, pe.Message), proxyerr.StatusCode(pe.Kind))
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // object bodies can be large and slow; don't cap total write time
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.cfg.ListenAddr).Info("proxy listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
