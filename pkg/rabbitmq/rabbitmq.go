package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Dial 初始化RabbitMQ连接
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// OpenConsumer 打开channel并注册手动ack的消费者：1、声明持久化队列（幂等） 2、限制未ack的消息数 3、注册消费者
// channel由调用方负责关闭
func OpenConsumer(conn *amqp.Connection, queue string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("无法打开Channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("无法声明队列 %s: %w", queue, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, nil, fmt.Errorf("无法设置Qos: %w", err)
		}
	}
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack: 处理完再手动确认
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("无法注册消费者: %w", err)
	}
	return ch, msgs, nil
}
