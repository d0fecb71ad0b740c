package service

// Services 对外暴露的全部服务
type Services struct {
	Pack  *PackService
	Equip *EquipService
	User  *UserService
}

// New 使用同一组依赖创建全部服务
func New(cfg *Config, d *Deps) (*Services, error) {
	pack, err := NewPackService(cfg, d)
	if err != nil {
		return nil, err
	}
	equip, err := NewEquipService(cfg, d)
	if err != nil {
		return nil, err
	}
	user, err := NewUserService(cfg, d)
	if err != nil {
		return nil, err
	}
	return &Services{Pack: pack, Equip: equip, User: user}, nil
}
