package listener

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/sid3xyz/slircd-ng/internal/matrix"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestValidNickAcceptsOrdinaryNick(t *testing.T) {
	require.True(t, validNick("alice_99", 16))
}

func TestValidNickRejectsOverLength(t *testing.T) {
	require.False(t, validNick(strings.Repeat("a", 17), 16))
}

func TestValidNickRejectsLeadingDigit(t *testing.T) {
	require.False(t, validNick("9alice", 16))
}

func TestValidChannelNameRequiresSigil(t *testing.T) {
	require.True(t, validChannelName("#general"))
	require.False(t, validChannelName("general"))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		ServerName:  "irc.test.example",
		NetworkName: "TestNet",
		SID:         "001",
		Limits:      config.DefaultLimits,
	}
	m, err := matrix.Build(context.Background(), cfg, matrix.Deps{
		HistoryDBPath: filepath.Join(t.TempDir(), "history"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown(time.Second) })

	log := logrus.New().WithField("component", "test")
	return New(m, log)
}

// readUntil reads lines from r until one contains needle or the
// deadline elapses, returning every line seen.
func readUntil(t *testing.T, r *bufio.Reader, needle string) []string {
	t.Helper()
	var lines []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
			if strings.Contains(line, needle) {
				return lines
			}
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("did not observe %q in: %v", needle, lines)
	return nil
}

func TestRegistrationHandshakeSendsWelcomeBurst(t *testing.T) {
	s := newTestServer(t)
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go s.handleConn(serverConn)

	clientConn.Write([]byte("NICK alice\r\n"))
	clientConn.Write([]byte("USER alice 0 * :Alice Example\r\n"))

	reader := bufio.NewReader(clientConn)
	lines := readUntil(t, reader, " 376 ")
	joined := strings.Join(lines, "")
	require.Contains(t, joined, " 001 alice")
	require.Contains(t, joined, "Welcome to TestNet")
}

func TestDuplicateNickIsRejected(t *testing.T) {
	s := newTestServer(t)

	firstClient, firstServer := net.Pipe()
	defer firstClient.Close()
	go s.handleConn(firstServer)
	firstClient.Write([]byte("NICK bob\r\n"))
	firstClient.Write([]byte("USER bob 0 * :Bob\r\n"))
	readUntil(t, bufio.NewReader(firstClient), " 376 ")

	secondClient, secondServer := net.Pipe()
	defer secondClient.Close()
	go s.handleConn(secondServer)
	secondClient.Write([]byte("NICK bob\r\n"))
	lines := readUntil(t, bufio.NewReader(secondClient), " 433 ")
	require.Contains(t, strings.Join(lines, ""), "433")
}

func TestJoinThenPrivmsgReachesOtherMember(t *testing.T) {
	s := newTestServer(t)

	aliceClient, aliceServer := net.Pipe()
	defer aliceClient.Close()
	go s.handleConn(aliceServer)
	aliceReader := bufio.NewReader(aliceClient)
	aliceClient.Write([]byte("NICK alice\r\n"))
	aliceClient.Write([]byte("USER alice 0 * :Alice\r\n"))
	readUntil(t, aliceReader, " 376 ")
	aliceClient.Write([]byte("JOIN #test\r\n"))
	readUntil(t, aliceReader, " 366 ")

	bobClient, bobServer := net.Pipe()
	defer bobClient.Close()
	go s.handleConn(bobServer)
	bobReader := bufio.NewReader(bobClient)
	bobClient.Write([]byte("NICK bob\r\n"))
	bobClient.Write([]byte("USER bob 0 * :Bob\r\n"))
	readUntil(t, bobReader, " 376 ")
	bobClient.Write([]byte("JOIN #test\r\n"))
	readUntil(t, bobReader, " 366 ")

	// alice observes bob's join broadcast
	readUntil(t, aliceReader, "JOIN #test")

	bobClient.Write([]byte("PRIVMSG #test :hello channel\r\n"))
	lines := readUntil(t, aliceReader, "hello channel")
	require.Contains(t, strings.Join(lines, ""), "PRIVMSG #test :hello channel")
}

func TestOpCanKickMember(t *testing.T) {
	s := newTestServer(t)

	aliceClient, aliceServer := net.Pipe()
	defer aliceClient.Close()
	go s.handleConn(aliceServer)
	aliceReader := bufio.NewReader(aliceClient)
	aliceClient.Write([]byte("NICK alice\r\n"))
	aliceClient.Write([]byte("USER alice 0 * :Alice\r\n"))
	readUntil(t, aliceReader, " 376 ")
	aliceClient.Write([]byte("JOIN #ops\r\n"))
	readUntil(t, aliceReader, " 366 ")

	bobClient, bobServer := net.Pipe()
	defer bobClient.Close()
	go s.handleConn(bobServer)
	bobReader := bufio.NewReader(bobClient)
	bobClient.Write([]byte("NICK bob\r\n"))
	bobClient.Write([]byte("USER bob 0 * :Bob\r\n"))
	readUntil(t, bobReader, " 376 ")
	bobClient.Write([]byte("JOIN #ops\r\n"))
	readUntil(t, bobReader, " 366 ")
	readUntil(t, aliceReader, "JOIN #ops")

	// alice is the channel creator and is auto-opped; she can kick bob.
	aliceClient.Write([]byte("KICK #ops bob :be gone\r\n"))
	lines := readUntil(t, bobReader, "KICK #ops bob")
	require.Contains(t, strings.Join(lines, ""), "be gone")
}
