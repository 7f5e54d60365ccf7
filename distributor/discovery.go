package distributor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/eunomia-project/eunomia/core"
)

// Discovery is the capability set every instance source implements:
// discover one service's instances, list everything known, and force a
// refresh.
type Discovery interface {
	Discover(ctx context.Context, service string) ([]core.Instance, error)
	AllInstances(ctx context.Context) ([]core.Instance, error)
	Refresh(ctx context.Context) error
}

// SourceKind tags the variant of a configured discovery Source.
type SourceKind int

const (
	SourceStatic SourceKind = iota
	SourceKubernetes
	SourceDns
)

// Source is a tagged discovery source configuration. Only Static is
// required to be functional; Kubernetes and Dns declare the interface and
// a best-effort implementation.
type Source struct {
	Kind SourceKind

	// Static
	Endpoints []core.Instance

	// Kubernetes
	Namespace     string
	LabelSelector string
	PortName      string

	// Dns
	Hosts    []string
	Port     int
	Resolver string
}

// StaticDiscovery serves a fixed, caller-supplied instance list.
type StaticDiscovery struct {
	instances []core.Instance
}

// NewStaticDiscovery builds a StaticDiscovery over instances.
func NewStaticDiscovery(instances []core.Instance) *StaticDiscovery {
	return &StaticDiscovery{instances: instances}
}

func (d *StaticDiscovery) Discover(_ context.Context, service string) ([]core.Instance, error) {
	var out []core.Instance
	for _, inst := range d.instances {
		if inst.Metadata.ServiceTag == "" || inst.Metadata.ServiceTag == service {
			out = append(out, inst.Clone())
		}
	}
	return out, nil
}

func (d *StaticDiscovery) AllInstances(_ context.Context) ([]core.Instance, error) {
	out := make([]core.Instance, len(d.instances))
	for i, inst := range d.instances {
		out[i] = inst.Clone()
	}
	return out, nil
}

// Refresh is a no-op: a static list never changes out of band.
func (d *StaticDiscovery) Refresh(_ context.Context) error { return nil }

// KubernetesDiscovery lists Pods matching LabelSelector in Namespace and
// converts every Running pod that has a pod IP into an Instance; pods that
// are not Ready are returned with status Unreachable. The port is the
// container port named PortName (or, with no PortName, the last declared
// container port), and 0 when none matches.
type KubernetesDiscovery struct {
	client        kubernetes.Interface
	namespace     string
	labelSelector string
	portName      string
}

// NewKubernetesDiscovery builds a KubernetesDiscovery from an existing
// clientset (obtained via in-cluster config or KUBECONFIG by the caller),
// threaded in rather than re-derived per call.
func NewKubernetesDiscovery(client kubernetes.Interface, namespace, labelSelector, portName string) *KubernetesDiscovery {
	return &KubernetesDiscovery{client: client, namespace: namespace, labelSelector: labelSelector, portName: portName}
}

func (d *KubernetesDiscovery) Discover(ctx context.Context, service string) ([]core.Instance, error) {
	selector := d.labelSelector
	if service != "" {
		if selector != "" {
			selector += ","
		}
		selector += "eunomia.service=" + service
	}
	list, err := d.client.CoreV1().Pods(d.namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, errors.Wrap(err, "distributor: listing kubernetes pods")
	}
	return podsToInstances(list.Items, d.portName), nil
}

func (d *KubernetesDiscovery) AllInstances(ctx context.Context) ([]core.Instance, error) {
	return d.Discover(ctx, "")
}

func (d *KubernetesDiscovery) Refresh(_ context.Context) error { return nil }

func podsToInstances(pods []corev1.Pod, portName string) []core.Instance {
	var out []core.Instance
	for _, pod := range pods {
		if pod.Status.Phase != corev1.PodRunning || pod.Status.PodIP == "" {
			continue
		}
		port := 0
		for _, c := range pod.Spec.Containers {
			for _, p := range c.Ports {
				if portName == "" || p.Name == portName {
					port = int(p.ContainerPort)
				}
			}
		}
		status := core.InstanceStatus{Kind: core.StatusUnknown}
		if !isPodReady(pod) {
			status = core.InstanceStatus{Kind: core.StatusUnreachable, Reason: "pod not ready"}
		}
		out = append(out, core.Instance{
			ID:       pod.Namespace + "/" + pod.Name,
			Endpoint: core.Endpoint{Host: pod.Status.PodIP, Port: port},
			Metadata: core.InstanceMetadata{Namespace: pod.Namespace, Labels: pod.Labels},
			Status:   status,
			LastSeen: time.Now().UTC(),
		})
	}
	return out
}

func isPodReady(pod corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// DnsDiscovery resolves a fixed list of hostnames to instances on a shared
// port, using resolver (a "host:port" DNS server address, or "" for the
// system resolver).
type DnsDiscovery struct {
	hosts    []string
	port     int
	resolver *net.Resolver
}

// NewDnsDiscovery builds a DnsDiscovery. When resolverAddr is non-empty,
// lookups are pinned to that DNS server instead of the system default.
func NewDnsDiscovery(hosts []string, port int, resolverAddr string) *DnsDiscovery {
	r := net.DefaultResolver
	if resolverAddr != "" {
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: 5 * time.Second}
				return d.DialContext(ctx, network, resolverAddr)
			},
		}
	}
	return &DnsDiscovery{hosts: hosts, port: port, resolver: r}
}

func (d *DnsDiscovery) Discover(ctx context.Context, _ string) ([]core.Instance, error) {
	return d.AllInstances(ctx)
}

func (d *DnsDiscovery) AllInstances(ctx context.Context) ([]core.Instance, error) {
	var out []core.Instance
	for _, host := range d.hosts {
		addrs, err := d.resolver.LookupHost(ctx, host)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			out = append(out, core.Instance{
				ID:       fmt.Sprintf("%s:%d", host, d.port),
				Endpoint: core.Endpoint{Host: addr, Port: d.port},
				LastSeen: time.Now().UTC(),
			})
		}
	}
	return out, nil
}

func (d *DnsDiscovery) Refresh(_ context.Context) error { return nil }

// CachedDiscovery wraps a Discovery with a whole-list TTL cache, guarded by
// a reader-writer lock so reads never block on each other.
type CachedDiscovery struct {
	inner Discovery
	ttl   time.Duration

	mu        sync.RWMutex
	cached    []core.Instance
	fetchedAt time.Time
}

// NewCachedDiscovery wraps inner with a TTL cache.
func NewCachedDiscovery(inner Discovery, ttl time.Duration) *CachedDiscovery {
	return &CachedDiscovery{inner: inner, ttl: ttl}
}

func (d *CachedDiscovery) ensureFresh(ctx context.Context) error {
	d.mu.RLock()
	fresh := time.Since(d.fetchedAt) < d.ttl && !d.fetchedAt.IsZero()
	d.mu.RUnlock()
	if fresh {
		return nil
	}

	all, err := d.inner.AllInstances(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.cached = all
	d.fetchedAt = time.Now().UTC()
	d.mu.Unlock()
	return nil
}

// Discover returns cached instances whose metadata has no service tag or
// matches service.
func (d *CachedDiscovery) Discover(ctx context.Context, service string) ([]core.Instance, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []core.Instance
	for _, inst := range d.cached {
		if inst.Metadata.ServiceTag == "" || inst.Metadata.ServiceTag == service {
			out = append(out, inst.Clone())
		}
	}
	return out, nil
}

func (d *CachedDiscovery) AllInstances(ctx context.Context) ([]core.Instance, error) {
	if err := d.ensureFresh(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.Instance, len(d.cached))
	for i, inst := range d.cached {
		out[i] = inst.Clone()
	}
	return out, nil
}

func (d *CachedDiscovery) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.fetchedAt = time.Time{}
	d.mu.Unlock()
	return d.ensureFresh(ctx)
}

// CombinedDiscovery aggregates instances across multiple sources.
type CombinedDiscovery struct {
	sources []Discovery
}

// NewCombinedDiscovery builds a CombinedDiscovery over sources.
func NewCombinedDiscovery(sources ...Discovery) *CombinedDiscovery {
	return &CombinedDiscovery{sources: sources}
}

func (d *CombinedDiscovery) Discover(ctx context.Context, service string) ([]core.Instance, error) {
	var out []core.Instance
	for _, s := range d.sources {
		found, err := s.Discover(ctx, service)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (d *CombinedDiscovery) AllInstances(ctx context.Context) ([]core.Instance, error) {
	var out []core.Instance
	for _, s := range d.sources {
		found, err := s.AllInstances(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (d *CombinedDiscovery) Refresh(ctx context.Context) error {
	for _, s := range d.sources {
		if err := s.Refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}
