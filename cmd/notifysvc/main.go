package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	config "github.com/hksamms/samms-services/configs"
	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/mail"
	natscli "github.com/hksamms/samms-services/internal/nats"
	"github.com/hksamms/samms-services/internal/notifysvc/broker"
)

const SERVICE_NAME = "notify"

var (
	instanceId string
	settings   config.Settings
)

func init() {
	settings = config.Load(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME+"_service_"+instanceId, settings.LogStdout)
}

func main() {
	// Connect to NATS
	n, err := natscli.Connect(settings.NatsURL, settings.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	notifier := mail.NewNotifier(
		mail.NewProvider(settings.SendGridKey, settings.MailFromName, settings.MailFrom),
		mail.WithMaxAttempts(settings.MailMaxAttempts),
		mail.WithBackoffUnit(settings.MailBackoff),
		mail.WithTimeout(settings.MailTimeout),
	)

	b := broker.NewBroker(n.Conn, notifier, settings.NotifyTimeout)

	// every notify instance joins the same queue group
	sub, err := b.QueueSubscribe(comm.SubjectNotifyEmail, comm.QueueNotifiers)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}
	log.Infof("%s service listening on %s (queue %s)", SERVICE_NAME, comm.SubjectNotifyEmail, comm.QueueNotifiers)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
