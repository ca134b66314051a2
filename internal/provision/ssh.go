package provision

import (
	"context"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHOptions tunes the SSH provisioner.
type SSHOptions struct {
	// ConnectTimeout bounds the SSH handshake. Defaults to 10s.
	ConnectTimeout time.Duration
	// StrictHostKey requires the target's host key to be present in the
	// known_hosts file at KnownHostsPath.
	StrictHostKey  bool
	KnownHostsPath string
	// Logger is optional; fingerprints of unverified hosts are logged here.
	Logger *zerolog.Logger
}

// SSHProvisioner provisions model runtimes over SSH + SFTP.
type SSHProvisioner struct {
	opts SSHOptions
}

// NewSSH constructs an SSH provisioner.
func NewSSH(opts SSHOptions) *SSHProvisioner {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &SSHProvisioner{opts: opts}
}

// conn bundles the SSH and SFTP clients for one session.
type conn struct {
	client *ssh.Client
	sftp   *sftp.Client
}

func (c *conn) close() {
	if c.sftp != nil {
		c.sftp.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
}

func (p *SSHProvisioner) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if p.opts.StrictHostKey {
		if p.opts.KnownHostsPath == "" {
			return nil, fmt.Errorf("strict host key checking requires a known_hosts path")
		}
		return knownhosts.New(p.opts.KnownHostsPath)
	}
	// Without a trust store we accept the key but record its fingerprint,
	// so operators can pin it later.
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if p.opts.Logger != nil {
			p.opts.Logger.Warn().
				Str("host", hostname).
				Str("fingerprint", ssh.FingerprintSHA256(key)).
				Msg("accepting unverified host key")
		}
		return nil
	}, nil
}

// dial opens SSH and SFTP sessions to host. The ssh_config port from the
// request is the service port, not the SSH port: SSH connects on 22 unless
// the host string itself carries a port.
func (p *SSHProvisioner) dial(host, user, password string) (*conn, error) {
	cb, err := p.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: cb,
		Timeout:         p.opts.ConnectTimeout,
	}
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, authError{msg: fmt.Sprintf("ssh auth to %s failed: %v", addr, err)}
		}
		return nil, unreachableError{msg: fmt.Sprintf("ssh connect to %s failed: %v", addr, err)}
	}
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, remoteError{msg: fmt.Sprintf("sftp session: %v", err)}
	}
	return &conn{client: client, sftp: sftpClient}, nil
}

// uploadScript writes content to dir/name with mode 0700 using a temporary
// file and an atomic rename, so a half-written script is never executable.
func (c *conn) uploadScript(dir, name string, content []byte) error {
	_ = c.sftp.Mkdir(remoteBaseDir) // ignore error if it already exists
	_ = c.sftp.Mkdir(dir)
	if err := c.sftp.Chmod(dir, 0o700); err != nil {
		return remoteError{msg: fmt.Sprintf("chmod %s: %v", dir, err)}
	}
	tmpPath := path.Join(dir, fmt.Sprintf("%s.deployd.%d", name, time.Now().UnixNano()))
	f, err := c.sftp.Create(tmpPath)
	if err != nil {
		return remoteError{msg: fmt.Sprintf("create %s: %v", tmpPath, err)}
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		_ = c.sftp.Remove(tmpPath)
		return remoteError{msg: fmt.Sprintf("write %s: %v", tmpPath, err)}
	}
	f.Close()
	if err := c.sftp.Chmod(tmpPath, 0o700); err != nil {
		_ = c.sftp.Remove(tmpPath)
		return remoteError{msg: fmt.Sprintf("chmod %s: %v", tmpPath, err)}
	}
	finalPath := path.Join(dir, name)
	if err := c.sftp.Rename(tmpPath, finalPath); err != nil {
		_ = c.sftp.Remove(tmpPath)
		return remoteError{msg: fmt.Sprintf("rename %s: %v", finalPath, err)}
	}
	return nil
}

// run executes a shell command on the target.
func (c *conn) run(cmd string) error {
	sess, err := c.client.NewSession()
	if err != nil {
		return remoteError{msg: fmt.Sprintf("ssh session: %v", err)}
	}
	defer sess.Close()
	if out, err := sess.CombinedOutput(cmd); err != nil {
		return remoteError{msg: fmt.Sprintf("remote command %q failed: %v: %s", cmd, err, strings.TrimSpace(string(out)))}
	}
	return nil
}

// Provision uploads the launch script and starts the model runtime, then
// waits until the service port accepts connections or ctx expires.
func (p *SSHProvisioner) Provision(ctx context.Context, spec Spec) error {
	c, err := p.dial(spec.Host, spec.SSHUser, spec.SSHPassword)
	if err != nil {
		return err
	}
	defer c.close()

	dir := remoteDeployDir(spec.APIName)
	launch, err := renderLaunchScript(spec)
	if err != nil {
		return err
	}
	stop, err := renderStopScript(spec.APIName)
	if err != nil {
		return err
	}
	if err := c.uploadScript(dir, "launch.sh", launch); err != nil {
		return err
	}
	if err := c.uploadScript(dir, "stop.sh", stop); err != nil {
		return err
	}
	if err := c.run(fmt.Sprintf("bash %s/launch.sh", dir)); err != nil {
		return err
	}
	return p.waitForPort(ctx, spec.Host, spec.Port)
}

// waitForPort polls the service port until it accepts a TCP connection.
func (p *SSHProvisioner) waitForPort(ctx context.Context, host string, port int) error {
	h := host
	if sh, _, err := net.SplitHostPort(host); err == nil {
		h = sh
	}
	addr := net.JoinHostPort(h, strconv.Itoa(port))
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		d, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = d.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return remoteError{msg: fmt.Sprintf("runtime on %s did not start listening: %v", addr, ctx.Err())}
		case <-ticker.C:
		}
	}
}

// Teardown stops the runtime and removes the deployment directory.
func (p *SSHProvisioner) Teardown(ctx context.Context, spec TeardownSpec) error {
	c, err := p.dial(spec.Host, spec.SSHUser, spec.SSHPassword)
	if err != nil {
		return err
	}
	defer c.close()

	dir := remoteDeployDir(spec.APIName)
	if err := c.run(fmt.Sprintf("bash %s/stop.sh", dir)); err != nil {
		return err
	}
	// Best-effort cleanup of the deployment directory.
	if entries, err := c.sftp.ReadDir(dir); err == nil {
		for _, e := range entries {
			_ = c.sftp.Remove(path.Join(dir, e.Name()))
		}
	}
	_ = c.sftp.RemoveDirectory(dir)
	return ctx.Err()
}
